package email

import (
	"context"
	"crypto/tls"

	"concern2care/internal/infra/config"

	mail "github.com/go-mail/mail/v2"
)

// SMTPSender delivers guidance over SMTP with mandatory STARTTLS. It
// implements delivery.Sender.
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPSender(cfg *config.AppConfig) *SMTPSender {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SkipTLSVerify, // dev only
	}
	return &SMTPSender{dialer: d, from: cfg.SMTPFrom}
}

func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	return s.dialer.DialAndSend(m)
}
