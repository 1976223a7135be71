package notifications

import (
	"bytes"
	"html/template"
	textTemplate "text/template"
)

type templateSet struct {
	subject *textTemplate.Template
	text    *textTemplate.Template
	html    *template.Template
}

var (
	welcomeTemplates = mustTemplates(
		"Welcome to CircleMart, {{.Name}}",
		"Hi {{.Name}},\n\nYour account is ready. Browse services and groups to get started.\n",
		`<p>Hi {{.Name}},</p><p>Your account is ready. Browse services and groups to get started.</p>`,
	)
	groupApprovalTemplates = mustTemplates(
		"You're in: {{.GroupName}}",
		"Hi {{.Name}},\n\nYour request to join {{.GroupName}} was approved.\n{{if .Link}}Open the group: {{.Link}}\n{{end}}",
		`<p>Hi {{.Name}},</p><p>Your request to join <strong>{{.GroupName}}</strong> was approved.</p>{{if .Link}}<p><a href="{{.Link}}">Open the group</a></p>{{end}}`,
	)
	groupRejectionTemplates = mustTemplates(
		"Update on your request to join {{.GroupName}}",
		"Hi {{.Name}},\n\nYour request to join {{.GroupName}} was not approved this time.\n",
		`<p>Hi {{.Name}},</p><p>Your request to join <strong>{{.GroupName}}</strong> was not approved this time.</p>`,
	)
)

type templateData struct {
	Name      string
	GroupName string
	Link      string
}

func mustTemplates(subject, text, html string) templateSet {
	return templateSet{
		subject: textTemplate.Must(textTemplate.New("subject").Parse(subject)),
		text:    textTemplate.Must(textTemplate.New("text").Parse(text)),
		html:    template.Must(template.New("html").Parse(html)),
	}
}

func (t templateSet) render(data templateData) (subject, text, html string, err error) {
	var buf bytes.Buffer
	if err = t.subject.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	subject = buf.String()

	buf.Reset()
	if err = t.text.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	text = buf.String()

	buf.Reset()
	if err = t.html.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	return subject, text, buf.String(), nil
}
