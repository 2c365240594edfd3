package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soaringjerry/Kringle/internal/models"
)

// Message is one outbound mail. The sender is transport glue; everything
// above it deals only in this struct.
type Message struct {
	ID      string
	To      string
	Subject string
	HTML    string
}

type MailSender interface {
	Send(ctx context.Context, msg Message) error
}

type MailStore interface {
	ListParticipants() ([]*models.Participant, error)
}

type MailFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// MailReport counts per-recipient outcomes. A blast with failures is not
// itself a failed operation; partial delivery is expected.
type MailReport struct {
	Sent   int           `json:"sent"`
	Failed int           `json:"failed"`
	Errors []MailFailure `json:"errors,omitempty"`
}

const mailWorkers = 4

type MailService struct {
	store   MailStore
	sender  MailSender
	baseURL string
	logger  *zap.Logger
}

func NewMailService(store MailStore, sender MailSender, baseURL string, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailService{store: store, sender: sender, baseURL: baseURL, logger: logger}
}

const tokenMailSubject = "🎅 Your Secret Santa Access Token"

const tokenMailBody = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 10px;">
  <div style="text-align: center;">
    <h1 style="color: #dc2626;">🎄 Secret Santa</h1>
    <p style="color: #666;">Your mission awaits, Agent %s.</p>
  </div>
  <div style="background-color: #f8fafc; padding: 20px; text-align: center; border-radius: 8px; border: 2px dashed #dc2626;">
    <p style="margin: 0; font-size: 14px; color: #888;">YOUR ACCESS TOKEN</p>
    <h2 style="margin: 10px 0; font-size: 32px; letter-spacing: 5px; color: #0f172a;">%s</h2>
  </div>
  <div style="text-align: center; margin-top: 30px;">
    <a href="%s" style="background-color: #dc2626; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold;">Login to Dashboard</a>
    <p style="font-size: 12px; color: #999; margin-top: 20px;">Do not share this token with anyone!</p>
  </div>
</div>`

// SendTokens mails every participant their access token. Deliveries run
// concurrently and independently; one bad address never aborts the blast.
func (s *MailService) SendTokens(ctx context.Context) (*MailReport, error) {
	if s.sender == nil {
		return nil, NewInvalidError("mail sender not configured")
	}
	participants, err := s.store.ListParticipants()
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		report MailReport
	)
	g := &errgroup.Group{}
	g.SetLimit(mailWorkers)
	for _, p := range participants {
		if p.Email == "" {
			continue
		}
		g.Go(func() error {
			msg := Message{
				ID:      uuid.NewString(),
				To:      p.Email,
				Subject: tokenMailSubject,
				HTML:    fmt.Sprintf(tokenMailBody, p.Name, p.Token, s.baseURL),
			}
			err := s.sender.Send(ctx, msg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, MailFailure{Name: p.Name, Error: err.Error()})
				s.logger.Warn("token mail failed", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			report.Sent++
			return nil
		})
	}
	_ = g.Wait()
	s.logger.Info("token mail blast complete", zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
	return &report, nil
}
