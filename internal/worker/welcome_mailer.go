// Package worker holds background consumers of the events queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/core"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
	"github.com/luxemuse/luxe-muse-backend/pkg/messagequeue"
)

// Sender delivers one email. *mailer.Mailer satisfies it.
type Sender interface {
	Send(recipient, subject, body string) error
}

const welcomeSubject = "Welcome to Luxe Muse"

// WelcomeMailerOptions configures NewWelcomeMailer.
type WelcomeMailerOptions struct {
	Queue     messagequeue.MessageQueue
	QueueName string
	Sender    Sender
	// StartingCredits is quoted in the mail. Zero means models.DefaultUserCredits.
	StartingCredits int
	Logger          *zap.Logger
}

// WelcomeMailer emails every newly provisioned account.
type WelcomeMailer struct {
	queue     messagequeue.MessageQueue
	queueName string
	sender    Sender
	credits   int
	logger    *zap.Logger
}

func NewWelcomeMailer(opts WelcomeMailerOptions) *WelcomeMailer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.StartingCredits <= 0 {
		opts.StartingCredits = models.DefaultUserCredits
	}
	return &WelcomeMailer{
		queue:     opts.Queue,
		queueName: opts.QueueName,
		sender:    opts.Sender,
		credits:   opts.StartingCredits,
		logger:    opts.Logger,
	}
}

// Run consumes the events queue until ctx is cancelled.
func (w *WelcomeMailer) Run(ctx context.Context) error {
	w.logger.Info("Welcome mailer started", zap.String("queue", w.queueName))
	if err := w.queue.Consume(ctx, w.queueName, w.Handle); err != nil {
		return fmt.Errorf("consume %s: %w", w.queueName, err)
	}
	return nil
}

// Handle processes one queue message. Malformed messages, events other than
// profile.created and the owner's own provisioning are acknowledged without
// action.
func (w *WelcomeMailer) Handle(_ context.Context, body []byte) error {
	var event core.Event
	if err := json.Unmarshal(body, &event); err != nil {
		w.logger.Warn("Dropping malformed event", zap.Error(err))
		return nil
	}
	if event.Type != core.EventProfileCreated {
		return nil
	}
	if event.Role == models.RoleOwner {
		w.logger.Debug("Skipping welcome mail for the owner account", zap.String("uid", event.UserID))
		return nil
	}
	if event.Email == "" {
		w.logger.Debug("Skipping welcome mail, no email on profile", zap.String("uid", event.UserID))
		return nil
	}

	if err := w.sender.Send(event.Email, welcomeSubject, welcomeBody(event.DisplayName, w.credits)); err != nil {
		w.logger.Error("Failed to send welcome mail", zap.String("uid", event.UserID), zap.Error(err))
		return err
	}
	w.logger.Info("Welcome mail sent", zap.String("uid", event.UserID))
	return nil
}

func welcomeBody(name string, credits int) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("<html><body>"+
		"<p>Hi %s,</p>"+
		"<p>Your Luxe Muse account is ready with %d free credits. Every generation costs a few credits, so make them count.</p>"+
		"<p>The Luxe Muse team</p>"+
		"</body></html>", html.EscapeString(name), credits)
}
