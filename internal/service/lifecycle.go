package service

import (
	"math"
	"strings"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// DefaultSLAHours is the escalation window used when neither the request
// nor the case carries one.
const DefaultSLAHours = 2.0

// CaseChange describes a requested change. A nil field was not mentioned
// by the caller and is left untouched.
type CaseChange struct {
	Title     *string
	Category  *string
	Notes     *string
	Status    *domain.CaseStatus
	Escalated *bool
	SLAHours  *float64
}

// validateChange checks a change before any state is computed. A zero
// SLAHours is normalised to "not supplied".
func validateChange(change *CaseChange, creating bool) error {
	if change.Title != nil && strings.TrimSpace(*change.Title) == "" {
		return apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
	}
	if creating && change.Title == nil {
		return apperrors.NewValidationError("title required", map[string]any{"field": "title"})
	}
	if change.Status != nil && !change.Status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{
			"field":   "status",
			"value":   string(*change.Status),
			"allowed": []domain.CaseStatus{domain.CaseStatusPending, domain.CaseStatusEscalated, domain.CaseStatusOK},
		})
	}
	if change.SLAHours != nil {
		hours := *change.SLAHours
		switch {
		case math.IsNaN(hours) || math.IsInf(hours, 0):
			return apperrors.NewValidationError("slaHours must be a finite number", map[string]any{"field": "slaHours"})
		case hours < 0:
			return apperrors.NewValidationError("slaHours must be positive", map[string]any{"field": "slaHours"})
		case hours*float64(time.Hour) >= math.MaxInt64:
			return apperrors.NewValidationError("slaHours is too large", map[string]any{
				"field": "slaHours",
				"max":   math.Floor(math.MaxInt64 / float64(time.Hour)),
			})
		case hours == 0:
			change.SLAHours = nil
		}
	}
	return nil
}

// ApplyChange computes the next consistent state of a case. current is nil
// on creation. The explicit status always wins over the escalated flag:
//
//  1. status OK or Pending clears the escalation.
//  2. status Escalated, or a truthy escalated flag, (re)starts the SLA
//     window from now using requested, current, then default hours.
//  3. a falsy escalated flag without a status demotes to Pending.
func ApplyChange(current *domain.Case, change CaseChange, now time.Time, defaultSLAHours float64) domain.Case {
	if defaultSLAHours <= 0 {
		defaultSLAHours = DefaultSLAHours
	}

	var next domain.Case
	if current != nil {
		next = current.Clone()
	} else {
		next = domain.Case{Status: domain.CaseStatusPending, CreatedAt: now}
	}

	if change.Title != nil {
		next.Title = strings.TrimSpace(*change.Title)
	}
	if change.Category != nil {
		next.Category = strings.TrimSpace(*change.Category)
	}
	if change.Notes != nil {
		next.Notes = *change.Notes
	}

	switch {
	case change.Status != nil && (*change.Status == domain.CaseStatusOK || *change.Status == domain.CaseStatusPending):
		clearEscalation(&next, *change.Status)
	case (change.Status != nil && *change.Status == domain.CaseStatusEscalated) || (change.Escalated != nil && *change.Escalated):
		hours := defaultSLAHours
		if change.SLAHours != nil && *change.SLAHours > 0 {
			hours = *change.SLAHours
		} else if next.SLAHours != nil && *next.SLAHours > 0 {
			hours = *next.SLAHours
		}
		until := now.Add(hoursToDuration(hours))
		next.Status = domain.CaseStatusEscalated
		next.Escalated = true
		next.SLAHours = &hours
		next.EscalatedUntil = &until
	case change.Escalated != nil && !*change.Escalated && change.Status == nil:
		clearEscalation(&next, domain.CaseStatusPending)
	}

	next.UpdatedAt = now
	return next
}

// Expired reports whether an escalated case has reached its deadline.
func Expired(c domain.Case, now time.Time) bool {
	return c.Status == domain.CaseStatusEscalated && c.EscalatedUntil != nil && !now.Before(*c.EscalatedUntil)
}

func clearEscalation(c *domain.Case, status domain.CaseStatus) {
	c.Status = status
	c.Escalated = false
	c.SLAHours = nil
	c.EscalatedUntil = nil
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
