package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/soaringjerry/Kringle/internal/services"
)

func TestSendBuildsMIMEMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	sender := NewSMTPSender("smtp.example.com", 587, "user", "pass", "santa@example.com")
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := sender.Send(context.Background(), services.Message{
		ID:      "msg-1",
		To:      "h@example.com",
		Subject: "Your token",
		HTML:    "<b>AAAAAA</b>",
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "santa@example.com" {
		t.Fatalf("wrong envelope: %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "h@example.com" {
		t.Fatalf("wrong recipients: %v", gotTo)
	}
	for _, want := range []string{
		"To: h@example.com\r\n",
		"Subject: Your token\r\n",
		"Message-ID: <msg-1@smtp.example.com>\r\n",
		"Content-Type: text/html",
		"\r\n\r\n<b>AAAAAA</b>",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Fatalf("message missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "", "", "santa@example.com")
	sender.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }
	if err := sender.Send(context.Background(), services.Message{}); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}

func TestSendHonorsCancelledContext(t *testing.T) {
	called := false
	sender := NewSMTPSender("smtp.example.com", 587, "", "", "santa@example.com")
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Send(ctx, services.Message{To: "h@example.com"}); err == nil {
		t.Fatalf("expected context error")
	}
	if called {
		t.Fatalf("wire call made despite cancelled context")
	}
}
