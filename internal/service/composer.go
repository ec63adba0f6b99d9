package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/d60-Lab/course-forum/internal/repository"
)

// EmailContent 一封待入队邮件的主题与正文；正文对本核心是不透明的 HTML 块
type EmailContent struct {
	Subject  string
	BodyHTML string
}

var emailTmpl = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body>
<p><strong>{{.Author}}</strong> 在 <strong>{{.Course}}</strong> 的会话 <strong>{{.Title}}</strong> 中发布了新消息：</p>
<div>{{.Content}}</div>
</body>
</html>
`))

// ComposeMessageEmail 根据快照生成通知邮件；匿名消息与已退课作者一律不署名
func ComposeMessageEmail(snap *repository.MessageSnapshot) (EmailContent, error) {
	author := "匿名"
	if !snap.Message.AnonymousAuthor && snap.AuthorName != nil {
		author = *snap.AuthorName
	}

	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, map[string]any{
		"Author":  author,
		"Course":  snap.Course.Name,
		"Title":   snap.Conversation.Title,
		"Content": template.HTML(snap.Message.ContentHTML), //nolint:gosec // 内容预处理子系统已消毒
	})
	if err != nil {
		return EmailContent{}, fmt.Errorf("compose email: %w", err)
	}

	return EmailContent{
		Subject:  fmt.Sprintf("%s · %s", snap.Course.Name, snap.Conversation.Title),
		BodyHTML: buf.String(),
	}, nil
}
