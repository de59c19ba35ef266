package services

import (
	"context"

	"gopkg.in/gomail.v2"
)

type SMTPSender struct {
	Host   string
	Port   int
	User   string
	Pass   string
	From   string
	UseTLS bool
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	// SSL means implicit TLS; without it gomail still upgrades with STARTTLS when offered.
	d.SSL = s.UseTLS

	return d.DialAndSend(m)
}
