package domain

import "time"

// CaseStatus enumerates lifecycle states for cases.
type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "Pending"
	CaseStatusEscalated CaseStatus = "Escalated"
	CaseStatusOK        CaseStatus = "OK"
)

// Valid reports whether s is a known status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusPending, CaseStatusEscalated, CaseStatusOK:
		return true
	}
	return false
}

// Case is the aggregate for tracked support cases.
//
// SLAHours and EscalatedUntil are set only while Status is Escalated, and
// Escalated mirrors Status.
type Case struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Notes          string     `json:"notes"`
	Status         CaseStatus `json:"status"`
	Escalated      bool       `json:"escalated"`
	SLAHours       *float64   `json:"slaHours"`
	EscalatedUntil *time.Time `json:"escalatedUntil"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy safe to keep as a history snapshot.
func (c Case) Clone() Case {
	out := c
	if c.SLAHours != nil {
		hours := *c.SLAHours
		out.SLAHours = &hours
	}
	if c.EscalatedUntil != nil {
		until := *c.EscalatedUntil
		out.EscalatedUntil = &until
	}
	return out
}

// Consistent reports whether the status/escalation invariant holds.
func (c Case) Consistent() bool {
	if c.Status == CaseStatusEscalated {
		return c.Escalated && c.SLAHours != nil && c.EscalatedUntil != nil
	}
	return !c.Escalated && c.SLAHours == nil && c.EscalatedUntil == nil
}
