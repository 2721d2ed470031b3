package notify

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"picshare/internal/config"
)

// Sender delivers a best-effort notification. Callers must treat
// failures as loggable events, never as operation failures.
type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	_ = ctx
	_ = htmlBody
	log.Printf("notification to=%s subject=%q body=%q", to, subject, strings.TrimSpace(textBody))
	return nil
}

type SMTPSender struct {
	host string
	port int
	from string
}

func NewSender(cfg config.Config) Sender {
	switch cfg.NotifySender {
	case "smtp":
		return SMTPSender{host: cfg.SMTPHost, port: cfg.SMTPPort, from: cfg.NotifyFrom}
	default:
		return LogSender{}
	}
}

func (s SMTPSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	_ = ctx
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	msg, err := buildMessage(s.from, to, subject, textBody, htmlBody)
	if err != nil {
		return err
	}
	return smtp.SendMail(addr, nil, s.from, []string{to}, msg)
}

func buildMessage(from, to, subject, textBody, htmlBody string) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(textBody)
		b.WriteString("\r\n")
		return []byte(b.String()), nil
	}

	var body strings.Builder
	mw := multipart.NewWriter(&body)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", textBody},
		{"text/html; charset=utf-8", htmlBody},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	b.WriteString(body.String())
	return []byte(b.String()), nil
}
