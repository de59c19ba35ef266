package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var actionEmail = template.Must(template.New("action").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif;">
    <div style="padding: 20px; max-width: 600px; margin: 0 auto;">
      <h1>{{.Title}}</h1>
      <p>{{.Intro}}</p>
      <a href="{{.URL}}" style="background-color: #3b82f6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block; margin: 20px 0;">{{.Button}}</a>
      <p>{{.Ignore}}</p>
      <div style="margin-top: 20px; font-size: 12px; color: #666;">
        <p>This link will expire in {{.Expiry}}.</p>
        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <p>{{.URL}}</p>
      </div>
    </div>
  </body>
</html>
`))

type actionEmailData struct {
	Title  string
	Intro  string
	Button string
	Ignore string
	URL    string
	Expiry string
}

func resetPasswordEmail(to, url string, ttl time.Duration) (Message, error) {
	html, err := renderAction(actionEmailData{
		Title:  "Reset Your Password",
		Intro:  "We received a request to reset your password. Click the button below to choose a new password:",
		Button: "Reset Password",
		Ignore: "If you didn't request this, you can safely ignore this email.",
		URL:    url,
		Expiry: humanDuration(ttl),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text:    "Click this link to reset your password: " + url,
		HTML:    html,
	}, nil
}

func verificationEmail(to, url string, ttl time.Duration) (Message, error) {
	html, err := renderAction(actionEmailData{
		Title:  "Verify Your Email",
		Intro:  "Thanks for signing up. Click the button below to verify your email address:",
		Button: "Verify Email",
		Ignore: "If you didn't create an account, you can safely ignore this email.",
		URL:    url,
		Expiry: humanDuration(ttl),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Text:    "Click this link to verify your email address: " + url,
		HTML:    html,
	}, nil
}

func renderAction(data actionEmailData) (string, error) {
	var buf bytes.Buffer
	if err := actionEmail.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.String()
	}
}
