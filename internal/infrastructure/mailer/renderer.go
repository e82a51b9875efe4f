package mailer

import (
	"fmt"

	"github.com/aymerick/raymond"
)

const (
	confirmationSubject = `{{appName}}: confirm your email`

	confirmationText = `Hi {{username}},

Your {{appName}} confirmation code is {{code}}.
It expires in {{expiresInMinutes}} minutes.

If you did not create an account you can ignore this email.`

	confirmationHTML = `<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1f2933;">
    <p>Hi {{username}},</p>
    <p>Your {{appName}} confirmation code is:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{code}}</p>
    <p>It expires in {{expiresInMinutes}} minutes.</p>
    <p style="color: #7b8794;">If you did not create an account you can ignore this email.</p>
  </body>
</html>`
)

// ConfirmationData fills the confirmation templates
type ConfirmationData struct {
	AppName          string
	Username         string
	Code             string
	ExpiresInMinutes int
}

// Renderer renders outbound mail from Handlebars templates
type Renderer struct {
	subject *raymond.Template
	html    *raymond.Template
	text    *raymond.Template
}

func NewRenderer() (*Renderer, error) {
	subject, err := raymond.Parse(confirmationSubject)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation subject: %w", err)
	}
	html, err := raymond.Parse(confirmationHTML)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation html: %w", err)
	}
	text, err := raymond.Parse(confirmationText)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation text: %w", err)
	}
	return &Renderer{subject: subject, html: html, text: text}, nil
}

// Confirmation renders the email confirmation message for one recipient
func (r *Renderer) Confirmation(to string, data ConfirmationData) (Message, error) {
	ctx := map[string]interface{}{
		"appName":          data.AppName,
		"username":         data.Username,
		"code":             data.Code,
		"expiresInMinutes": data.ExpiresInMinutes,
	}

	subject, err := r.subject.Exec(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation subject: %w", err)
	}
	html, err := r.html.Exec(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation html: %w", err)
	}
	text, err := r.text.Exec(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation text: %w", err)
	}

	return Message{
		To:      to,
		ToName:  data.Username,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, nil
}
