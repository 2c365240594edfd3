// Package mail implements the outbound mail dispatcher over plain SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/soaringjerry/Kringle/internal/services"
)

// SMTPSender delivers services.Message over an authenticated SMTP
// submission port.
type SMTPSender struct {
	Host string
	Port int
	User string
	Pass string
	From string

	// send allows tests to intercept the wire call.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, User: user, Pass: pass, From: from, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg services.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: Secret Santa Admin <%s>\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", msg.ID, s.Host)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	if err := s.send(addr, auth, s.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
