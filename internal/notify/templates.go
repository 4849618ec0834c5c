package notify

import (
	"bytes"
	"html/template"
)

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "verify"}}<p>Hello {{.Name}},</p>
<p>Confirm your TableFlow account by opening <a href="{{.Link}}">this link</a>. It expires on {{.ExpiresAt.Format "02 Jan 2006 15:04 MST"}}.</p>{{end}}
{{define "reset"}}<p>Hello {{.Name}},</p>
<p>Reset your password <a href="{{.Link}}">here</a>. If you did not ask for this, ignore this email.</p>{{end}}
{{define "order"}}<p>Hello {{.Name}},</p>
<p>{{.Message}}</p>
<p><a href="{{.Link}}">View order {{.Reference}}</a></p>{{end}}
`))

// RenderEmail executes the named email template.
func RenderEmail(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
