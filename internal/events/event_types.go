package events

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated    EventType = "case_created"
	EventCaseUpdated    EventType = "case_updated"
	EventCaseDeleted    EventType = "case_deleted"
	EventCaseSLAExpired EventType = "case_sla_expired"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	CaseID    string    `json:"case_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	Title     string            `json:"title"`
	Category  string            `json:"category"`
	Status    domain.CaseStatus `json:"status"`
	Escalated bool              `json:"escalated"`
}

// CaseUpdatedPayload payload.
type CaseUpdatedPayload struct {
	OldStatus domain.CaseStatus `json:"old_status"`
	NewStatus domain.CaseStatus `json:"new_status"`
	Escalated bool              `json:"escalated"`
}

// CaseDeletedPayload payload.
type CaseDeletedPayload struct {
	Title  string            `json:"title"`
	Status domain.CaseStatus `json:"status"`
}

// CaseSLAExpiredPayload payload.
type CaseSLAExpiredPayload struct {
	SLAHours       float64   `json:"sla_hours"`
	EscalatedUntil time.Time `json:"escalated_until"`
	Reason         string    `json:"reason"`
}
