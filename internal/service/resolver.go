package service

import (
	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
)

// Recipient 解析出的一个收件人
type Recipient struct {
	ParticipantID string
	Email         string
}

// ResolveInput 解析器的全部输入；纯数据，不含存储句柄
type ResolveInput struct {
	Message      model.Message
	Conversation model.Conversation
	// Candidates 课程内邮箱已验证的参与者（候选池）
	Candidates []repository.NotifiableParticipant
	// SelectedParticipantIDs 受限可见会话的入选名单
	SelectedParticipantIDs []string
	// Mentions 消息的提及目标（预计算）
	Mentions []model.MessageMentionTarget
	// ConversationAuthorIDs 在该会话发过言的参与者
	ConversationAuthorIDs []string
	// StarterParticipantID 开场消息作者；已退课为空串
	StarterParticipantID string
	// AlreadyNotified 台账中已有记录的参与者，绝不二次返回
	AlreadyNotified []string
}

// ResolveRecipients 纯函数：算出本条消息应通知的参与者集合。
// 过滤顺序：台账排除 → 员工私语限定 → 可见范围 → 公告直通 / 偏好闸门。
// 结果无序，每人恰好一条
func ResolveRecipients(in ResolveInput) []Recipient {
	notified := toSet(in.AlreadyNotified)
	selected := toSet(in.SelectedParticipantIDs)
	authors := toSet(in.ConversationAuthorIDs)

	// 公告开场消息跳过偏好闸门，按范围全量派发
	openingAnnouncement := in.Conversation.Kind == model.ConversationNote &&
		in.Conversation.AnnouncementAt != nil &&
		in.Message.Reference == 1

	var out []Recipient
	for _, c := range in.Candidates {
		if notified[c.ID] {
			continue
		}
		if in.Message.Kind == model.MessageKindStaffOnlyNote && c.Role != model.RoleCourseStaff {
			continue
		}
		switch in.Conversation.ParticipantsScope {
		case model.ScopeCourseStaffAndSelected:
			if c.Role != model.RoleCourseStaff && !selected[c.ID] {
				continue
			}
		case model.ScopeSelectedOnly:
			if !selected[c.ID] {
				continue
			}
		}
		if !openingAnnouncement && !passesPreferenceGate(c, in.Mentions, authors, in.StarterParticipantID) {
			continue
		}
		out = append(out, Recipient{ParticipantID: c.ID, Email: c.Email})
	}
	return out
}

// passesPreferenceGate 候选人至少命中一条订阅理由才会收信
func passesPreferenceGate(c repository.NotifiableParticipant, mentions []model.MessageMentionTarget, authors map[string]bool, starterID string) bool {
	if c.NotifyAllMessages != model.NotifyAllOff {
		return true
	}
	if c.NotifyOnMention && mentionMatches(c, mentions) {
		return true
	}
	if c.NotifyOnConversationsParticipatedIn && authors[c.ID] {
		return true
	}
	if c.NotifyOnConversationsStarted && starterID != "" && starterID == c.ID {
		return true
	}
	return false
}

// mentionMatches 目标类型逐一穷举：个人引用精确匹配，粗粒度目标按角色匹配
func mentionMatches(c repository.NotifiableParticipant, mentions []model.MessageMentionTarget) bool {
	for _, m := range mentions {
		switch m.Kind {
		case model.MentionEveryone:
			return true
		case model.MentionCourseStaff:
			if c.Role == model.RoleCourseStaff {
				return true
			}
		case model.MentionStudents:
			if c.Role == model.RoleStudent {
				return true
			}
		case model.MentionParticipant:
			if m.ParticipantID != nil && *m.ParticipantID == c.ID {
				return true
			}
		}
	}
	return false
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
