package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/events"
)

// Notification channels.
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// Notification is one outgoing message about a case.
type Notification struct {
	Channel   string
	Target    string
	CaseID    string
	EventType events.EventType
	Subject   string
}

// NotificationService turns case events into email and webhook messages.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, cfg: cfg}
}

// Notify delivers every notification the event triggers.
func (n *NotificationService) Notify(ctx context.Context, event events.Event) error {
	for _, note := range n.Plan(event) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.deliver(note)
	}
	return nil
}

// Plan lists the notifications an event triggers for the configured
// targets. Webhooks fire on every status change; email only when an
// escalation lapses.
func (n *NotificationService) Plan(event events.Event) []Notification {
	subject, ok := describeEvent(event)
	if !ok {
		return nil
	}

	var notes []Notification
	emailFrom := strings.TrimSpace(n.cfg.EmailFrom)
	if event.Type == events.EventCaseSLAExpired && emailFrom != "" {
		notes = append(notes, Notification{Channel: ChannelEmail, Target: emailFrom, CaseID: event.CaseID, EventType: event.Type, Subject: subject})
	}
	if url := strings.TrimSpace(n.cfg.WebhookURL); url != "" {
		notes = append(notes, Notification{Channel: ChannelWebhook, Target: url, CaseID: event.CaseID, EventType: event.Type, Subject: subject})
	}
	return notes
}

// deliver logs the message; no transport is wired yet.
func (n *NotificationService) deliver(note Notification) {
	n.logger.Info("notification",
		zap.String("channel", note.Channel),
		zap.String("target", note.Target),
		zap.String("case_id", note.CaseID),
		zap.String("event_type", string(note.EventType)),
		zap.String("subject", note.Subject))
}

// describeEvent builds the subject line. Updates that keep the status
// produce nothing.
func describeEvent(event events.Event) (string, bool) {
	switch p := event.Payload.(type) {
	case events.CaseCreatedPayload:
		if p.Escalated {
			return fmt.Sprintf("Case %s opened escalated: %s", event.CaseID, p.Title), true
		}
		return fmt.Sprintf("Case %s opened: %s", event.CaseID, p.Title), true
	case events.CaseUpdatedPayload:
		if p.OldStatus == p.NewStatus {
			return "", false
		}
		return fmt.Sprintf("Case %s moved from %s to %s", event.CaseID, p.OldStatus, p.NewStatus), true
	case events.CaseDeletedPayload:
		return fmt.Sprintf("Case %s deleted while %s: %s", event.CaseID, p.Status, p.Title), true
	case events.CaseSLAExpiredPayload:
		return fmt.Sprintf("Case %s escalation lapsed after %gh, back to Pending", event.CaseID, p.SLAHours), true
	}

	switch event.Type {
	case events.EventCaseCreated, events.EventCaseDeleted, events.EventCaseSLAExpired:
		return fmt.Sprintf("Case %s: %s", event.CaseID, event.Type), true
	}
	return "", false
}
