package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
)

func candidate(id, role string, mutate ...func(*repository.NotifiableParticipant)) repository.NotifiableParticipant {
	c := repository.NotifiableParticipant{
		ID:                id,
		Role:              role,
		Email:             id + "@example.com",
		NotifyAllMessages: model.NotifyAllInstant,
	}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

func quiet(c *repository.NotifiableParticipant) {
	// 关掉所有订阅理由
	c.NotifyAllMessages = model.NotifyAllOff
	c.NotifyOnMention = false
	c.NotifyOnConversationsParticipatedIn = false
	c.NotifyOnConversationsStarted = false
}

func recipientIDs(rs []Recipient) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ParticipantID
	}
	return ids
}

func TestResolveExcludesAlreadyNotified(t *testing.T) {
	out := ResolveRecipients(ResolveInput{
		Message:      model.Message{Kind: model.MessageKindMessage},
		Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
		Candidates: []repository.NotifiableParticipant{
			candidate("a", model.RoleStudent),
			candidate("b", model.RoleStudent),
		},
		AlreadyNotified: []string{"a"},
	})
	require.Equal(t, []string{"b"}, recipientIDs(out))
}

func TestResolveStaffOnlyNoteNeverReachesStudents(t *testing.T) {
	out := ResolveRecipients(ResolveInput{
		Message:      model.Message{Kind: model.MessageKindStaffOnlyNote},
		Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
		Candidates: []repository.NotifiableParticipant{
			candidate("student", model.RoleStudent),
			candidate("staff", model.RoleCourseStaff),
		},
	})
	require.Equal(t, []string{"staff"}, recipientIDs(out))
}

func TestResolveVisibilityScopes(t *testing.T) {
	candidates := []repository.NotifiableParticipant{
		candidate("staff", model.RoleCourseStaff),
		candidate("selected-student", model.RoleStudent),
		candidate("other-student", model.RoleStudent),
	}

	t.Run("everyone", func(t *testing.T) {
		out := ResolveRecipients(ResolveInput{
			Message:      model.Message{Kind: model.MessageKindMessage},
			Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
			Candidates:   candidates,
		})
		require.ElementsMatch(t, []string{"staff", "selected-student", "other-student"}, recipientIDs(out))
	})

	t.Run("course-staff-and-selected", func(t *testing.T) {
		out := ResolveRecipients(ResolveInput{
			Message:                model.Message{Kind: model.MessageKindMessage},
			Conversation:           model.Conversation{ParticipantsScope: model.ScopeCourseStaffAndSelected},
			Candidates:             candidates,
			SelectedParticipantIDs: []string{"selected-student"},
		})
		require.ElementsMatch(t, []string{"staff", "selected-student"}, recipientIDs(out))
	})

	t.Run("selected-only", func(t *testing.T) {
		out := ResolveRecipients(ResolveInput{
			Message:                model.Message{Kind: model.MessageKindMessage},
			Conversation:           model.Conversation{ParticipantsScope: model.ScopeSelectedOnly},
			Candidates:             candidates,
			SelectedParticipantIDs: []string{"selected-student"},
		})
		// 员工也不例外，名单之外绝不泄露
		require.Equal(t, []string{"selected-student"}, recipientIDs(out))
	})
}

func TestResolveMentionTargeting(t *testing.T) {
	pid := "mentioned"
	mentionOnly := func(c *repository.NotifiableParticipant) {
		quiet(c)
		c.NotifyOnMention = true
	}

	tests := []struct {
		name     string
		mentions []model.MessageMentionTarget
		want     []string
	}{
		{"no mentions", nil, nil},
		{"individual", []model.MessageMentionTarget{{Kind: model.MentionParticipant, ParticipantID: &pid}}, []string{"mentioned"}},
		{"everyone", []model.MessageMentionTarget{{Kind: model.MentionEveryone}}, []string{"mentioned", "staff", "student"}},
		{"course-staff", []model.MessageMentionTarget{{Kind: model.MentionCourseStaff}}, []string{"staff"}},
		{"students", []model.MessageMentionTarget{{Kind: model.MentionStudents}}, []string{"mentioned", "student"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ResolveRecipients(ResolveInput{
				Message:      model.Message{Kind: model.MessageKindMessage},
				Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
				Candidates: []repository.NotifiableParticipant{
					candidate("mentioned", model.RoleStudent, mentionOnly),
					candidate("student", model.RoleStudent, mentionOnly),
					candidate("staff", model.RoleCourseStaff, mentionOnly),
				},
				Mentions: tt.mentions,
			})
			require.ElementsMatch(t, tt.want, recipientIDs(out))
		})
	}
}

func TestResolveMentionDisabledPreferenceWins(t *testing.T) {
	pid := "p1"
	out := ResolveRecipients(ResolveInput{
		Message:      model.Message{Kind: model.MessageKindMessage},
		Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
		Candidates: []repository.NotifiableParticipant{
			// 被点名但关掉了提及通知
			candidate("p1", model.RoleStudent, quiet),
		},
		Mentions: []model.MessageMentionTarget{{Kind: model.MentionParticipant, ParticipantID: &pid}},
	})
	require.Empty(t, out)
}

func TestResolveParticipatedAndStartedGates(t *testing.T) {
	participated := func(c *repository.NotifiableParticipant) {
		quiet(c)
		c.NotifyOnConversationsParticipatedIn = true
	}
	started := func(c *repository.NotifiableParticipant) {
		quiet(c)
		c.NotifyOnConversationsStarted = true
	}

	out := ResolveRecipients(ResolveInput{
		Message:      model.Message{Kind: model.MessageKindMessage},
		Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
		Candidates: []repository.NotifiableParticipant{
			candidate("poster", model.RoleStudent, participated),
			candidate("lurker", model.RoleStudent, participated),
			candidate("starter", model.RoleStudent, started),
			candidate("non-starter", model.RoleStudent, started),
		},
		ConversationAuthorIDs: []string{"poster"},
		StarterParticipantID:  "starter",
	})
	require.ElementsMatch(t, []string{"poster", "starter"}, recipientIDs(out))
}

func TestResolveOpeningAnnouncementSkipsPreferenceGate(t *testing.T) {
	ann := time.Now()

	t.Run("opening message of announcement", func(t *testing.T) {
		out := ResolveRecipients(ResolveInput{
			Message:      model.Message{Kind: model.MessageKindMessage, Reference: 1},
			Conversation: model.Conversation{Kind: model.ConversationNote, AnnouncementAt: &ann, ParticipantsScope: model.ScopeEveryone},
			Candidates: []repository.NotifiableParticipant{
				candidate("quiet-student", model.RoleStudent, quiet),
			},
		})
		require.Equal(t, []string{"quiet-student"}, recipientIDs(out))
	})

	t.Run("follow-up message keeps the gate", func(t *testing.T) {
		out := ResolveRecipients(ResolveInput{
			Message:      model.Message{Kind: model.MessageKindMessage, Reference: 2},
			Conversation: model.Conversation{Kind: model.ConversationNote, AnnouncementAt: &ann, ParticipantsScope: model.ScopeEveryone},
			Candidates: []repository.NotifiableParticipant{
				candidate("quiet-student", model.RoleStudent, quiet),
			},
		})
		require.Empty(t, out)
	})

	t.Run("announcement still honors scope", func(t *testing.T) {
		out := ResolveRecipients(ResolveInput{
			Message:                model.Message{Kind: model.MessageKindMessage, Reference: 1},
			Conversation:           model.Conversation{Kind: model.ConversationNote, AnnouncementAt: &ann, ParticipantsScope: model.ScopeSelectedOnly},
			Candidates:             []repository.NotifiableParticipant{candidate("outsider", model.RoleStudent, quiet)},
			SelectedParticipantIDs: []string{"someone-else"},
		})
		require.Empty(t, out)
	})
}

func TestResolveDigestPreferencesDeliverInstantly(t *testing.T) {
	// hourly/daily 尚未实现合并，按 instant 派发
	out := ResolveRecipients(ResolveInput{
		Message:      model.Message{Kind: model.MessageKindMessage},
		Conversation: model.Conversation{ParticipantsScope: model.ScopeEveryone},
		Candidates: []repository.NotifiableParticipant{
			candidate("hourly", model.RoleStudent, func(c *repository.NotifiableParticipant) { c.NotifyAllMessages = model.NotifyAllHourlyDigest }),
			candidate("daily", model.RoleStudent, func(c *repository.NotifiableParticipant) { c.NotifyAllMessages = model.NotifyAllDailyDigest }),
		},
	})
	require.ElementsMatch(t, []string{"hourly", "daily"}, recipientIDs(out))
}
