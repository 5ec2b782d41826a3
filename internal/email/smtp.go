// Package email provides the SMTP relay provider.
package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// SMTPProvider implements Provider over a plain SMTP relay (Brevo, SES SMTP
// and the like). STARTTLS is negotiated by net/smtp when the relay offers it.
type SMTPProvider struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPProvider(host string, port int, user, pass, from string) *SMTPProvider {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPProvider{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (p *SMTPProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := email.HTML
	contentType := "text/html; charset=UTF-8"
	if body == "" {
		body = email.Text
		contentType = "text/plain; charset=UTF-8"
	}
	if body == "" {
		return fmt.Errorf("email body is empty")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", p.from)
	fmt.Fprintf(&msg, "To: %s\r\n", email.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(p.addr, p.auth, p.from, []string{email.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email via smtp relay: %w", err)
	}
	return nil
}
