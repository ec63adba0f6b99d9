package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/course-forum/internal/model"
	"github.com/d60-Lab/course-forum/internal/repository"
)

func snapshot(mutate ...func(*repository.MessageSnapshot)) *repository.MessageSnapshot {
	name := "王小明"
	snap := &repository.MessageSnapshot{
		Message:      model.Message{ContentHTML: "<p>作业截止时间推迟到周五</p>"},
		Conversation: model.Conversation{Title: "第一次作业答疑"},
		Course:       model.Course{Name: "数据结构"},
		AuthorName:   &name,
	}
	for _, m := range mutate {
		m(snap)
	}
	return snap
}

func TestComposeMessageEmail(t *testing.T) {
	content, err := ComposeMessageEmail(snapshot())
	require.NoError(t, err)
	require.Equal(t, "数据结构 · 第一次作业答疑", content.Subject)
	require.Contains(t, content.BodyHTML, "王小明")
	require.Contains(t, content.BodyHTML, "<p>作业截止时间推迟到周五</p>")
}

func TestComposeMessageEmailAnonymousHidesAuthor(t *testing.T) {
	content, err := ComposeMessageEmail(snapshot(func(s *repository.MessageSnapshot) {
		s.Message.AnonymousAuthor = true
	}))
	require.NoError(t, err)
	require.NotContains(t, content.BodyHTML, "王小明")
	require.Contains(t, content.BodyHTML, "匿名")
}

func TestComposeMessageEmailDepartedAuthorHidesName(t *testing.T) {
	content, err := ComposeMessageEmail(snapshot(func(s *repository.MessageSnapshot) {
		s.AuthorName = nil
	}))
	require.NoError(t, err)
	require.Contains(t, content.BodyHTML, "匿名")
}

func TestComposeMessageEmailEscapesTitleNotContent(t *testing.T) {
	content, err := ComposeMessageEmail(snapshot(func(s *repository.MessageSnapshot) {
		s.Conversation.Title = "a < b 吗？"
	}))
	require.NoError(t, err)
	// 标题按文本转义，正文保持原始 HTML
	require.Contains(t, content.BodyHTML, "a &lt; b 吗？")
	require.Contains(t, content.BodyHTML, "<p>作业截止时间推迟到周五</p>")
}
