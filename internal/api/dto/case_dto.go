package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
)

// CaseRequest is the body of POST /cases and PUT /cases/:id. Absent or
// null fields are left unchanged.
type CaseRequest struct {
	Title     *string    `json:"title"`
	Category  *string    `json:"category"`
	Notes     *string    `json:"notes"`
	Status    *string    `json:"status"`
	Escalated FlexBool   `json:"escalated"`
	SLAHours  FlexNumber `json:"slaHours"`
}

// Change converts the request into a lifecycle change.
func (r CaseRequest) Change() service.CaseChange {
	change := service.CaseChange{
		Title:    r.Title,
		Category: r.Category,
		Notes:    r.Notes,
	}
	if r.Status != nil && strings.TrimSpace(*r.Status) != "" {
		status := domain.CaseStatus(strings.TrimSpace(*r.Status))
		change.Status = &status
	}
	if r.Escalated.Set {
		v := r.Escalated.Value
		change.Escalated = &v
	}
	if r.SLAHours.Set {
		v := r.SLAHours.Value
		change.SLAHours = &v
	}
	return change
}

// FlexBool accepts a JSON boolean, the numbers 0 and 1, or one of the flag
// strings understood by ParseFlag. Null and the empty string leave it unset.
type FlexBool struct {
	Set   bool
	Value bool
}

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		b.Set, b.Value = true, v
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		switch num {
		case 0:
			b.Set, b.Value = true, false
		case 1:
			b.Set, b.Value = true, true
		default:
			return fmt.Errorf("escalated: number must be 0 or 1, got %v", num)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("escalated: expected boolean, 0/1 or string")
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, ok := ParseFlag(s)
	if !ok {
		return fmt.Errorf("escalated: unrecognised value %q", s)
	}
	b.Set, b.Value = true, v
	return nil
}

// FlexNumber accepts a JSON number or a numeric string. Null and the empty
// string leave it unset.
type FlexNumber struct {
	Set   bool
	Value float64
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		n.Set, n.Value = true, v
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("slaHours: expected number")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return fmt.Errorf("slaHours: %q is not a number", s)
	}
	n.Set, n.Value = true, v
	return nil
}

// ParseFlag interprets the boolean spellings accepted by the API,
// including the Spanish si/no sent by the web UI.
func ParseFlag(raw string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "si", "sí", "1", "y":
		return true, true
	case "false", "no", "0", "n":
		return false, true
	}
	return false, false
}

// CaseResponse is the wire form of a case.
type CaseResponse struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Category            string            `json:"category"`
	Notes               string            `json:"notes"`
	Status              domain.CaseStatus `json:"status"`
	Escalated           bool              `json:"escalated"`
	SLAHours            *float64          `json:"slaHours"`
	EscalatedUntil      *time.Time        `json:"escalatedUntil"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
	RemainingSLASeconds *int64            `json:"remainingSlaSeconds"`
}

// NewCaseResponse maps a projected case to its response.
func NewCaseResponse(v service.CaseView) CaseResponse {
	return CaseResponse{
		ID:                  v.ID,
		Title:               v.Title,
		Category:            v.Category,
		Notes:               v.Notes,
		Status:              v.Status,
		Escalated:           v.Escalated,
		SLAHours:            v.SLAHours,
		EscalatedUntil:      v.EscalatedUntil,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
		RemainingSLASeconds: v.RemainingSLASeconds,
	}
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	OK bool `json:"ok"`
}
