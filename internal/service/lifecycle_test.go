package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
func floatPtr(f float64) *float64 { return &f }
func statusPtr(s domain.CaseStatus) *domain.CaseStatus { return &s }

func escalatedAt(now time.Time, hours float64) domain.Case {
	until := now.Add(hoursToDuration(hours))
	return domain.Case{
		ID:             "CASE0001",
		Title:          "vpn",
		Status:         domain.CaseStatusEscalated,
		Escalated:      true,
		SLAHours:       &hours,
		EscalatedUntil: &until,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestApplyChangeCreateDefaults(t *testing.T) {
	got := ApplyChange(nil, CaseChange{Title: strPtr("  printer  "), Category: strPtr(" hw ")}, t0, DefaultSLAHours)

	assert.Equal(t, "printer", got.Title)
	assert.Equal(t, "hw", got.Category)
	assert.Equal(t, domain.CaseStatusPending, got.Status)
	assert.False(t, got.Escalated)
	assert.Nil(t, got.SLAHours)
	assert.Nil(t, got.EscalatedUntil)
	assert.Equal(t, t0, got.CreatedAt)
	assert.Equal(t, t0, got.UpdatedAt)
	assert.True(t, got.Consistent())
}

func TestApplyChangeCreateEscalatedUsesDefaultSLA(t *testing.T) {
	got := ApplyChange(nil, CaseChange{Title: strPtr("x"), Escalated: boolPtr(true)}, t0, DefaultSLAHours)

	assert.Equal(t, domain.CaseStatusEscalated, got.Status)
	require.NotNil(t, got.SLAHours)
	assert.Equal(t, 2.0, *got.SLAHours)
	require.NotNil(t, got.EscalatedUntil)
	assert.Equal(t, t0.Add(2*time.Hour), *got.EscalatedUntil)
	assert.True(t, got.Consistent())
}

func TestApplyChangePrecedence(t *testing.T) {
	current := escalatedAt(t0, 4)
	pending := domain.Case{ID: "CASE0002", Title: "p", Status: domain.CaseStatusPending, CreatedAt: t0, UpdatedAt: t0}
	later := t0.Add(30 * time.Minute)

	tests := []struct {
		name      string
		current   domain.Case
		change    CaseChange
		status    domain.CaseStatus
		slaHours  *float64
		untilFrom time.Time
	}{
		{
			name:    "ok clears escalation",
			current: current,
			change:  CaseChange{Status: statusPtr(domain.CaseStatusOK)},
			status:  domain.CaseStatusOK,
		},
		{
			name:    "explicit status beats truthy flag",
			current: current,
			change:  CaseChange{Status: statusPtr(domain.CaseStatusOK), Escalated: boolPtr(true)},
			status:  domain.CaseStatusOK,
		},
		{
			name:    "pending beats truthy flag",
			current: current,
			change:  CaseChange{Status: statusPtr(domain.CaseStatusPending), Escalated: boolPtr(true), SLAHours: floatPtr(5)},
			status:  domain.CaseStatusPending,
		},
		{
			name:      "escalated status restarts window with current hours",
			current:   current,
			change:    CaseChange{Status: statusPtr(domain.CaseStatusEscalated)},
			status:    domain.CaseStatusEscalated,
			slaHours:  floatPtr(4),
			untilFrom: later,
		},
		{
			name:      "escalated status beats falsy flag",
			current:   pending,
			change:    CaseChange{Status: statusPtr(domain.CaseStatusEscalated), Escalated: boolPtr(false)},
			status:    domain.CaseStatusEscalated,
			slaHours:  floatPtr(2),
			untilFrom: later,
		},
		{
			name:      "truthy flag with requested hours",
			current:   pending,
			change:    CaseChange{Escalated: boolPtr(true), SLAHours: floatPtr(0.5)},
			status:    domain.CaseStatusEscalated,
			slaHours:  floatPtr(0.5),
			untilFrom: later,
		},
		{
			name:    "falsy flag demotes to pending",
			current: current,
			change:  CaseChange{Escalated: boolPtr(false)},
			status:  domain.CaseStatusPending,
		},
		{
			name:      "unrelated fields keep escalation",
			current:   current,
			change:    CaseChange{Notes: strPtr("called back")},
			status:    domain.CaseStatusEscalated,
			slaHours:  floatPtr(4),
			untilFrom: t0,
		},
		{
			name:    "sla hours alone are ignored",
			current: pending,
			change:  CaseChange{SLAHours: floatPtr(8)},
			status:  domain.CaseStatusPending,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cur := tc.current.Clone()
			got := ApplyChange(&cur, tc.change, later, DefaultSLAHours)

			assert.Equal(t, tc.status, got.Status)
			assert.True(t, got.Consistent())
			assert.Equal(t, later, got.UpdatedAt)
			assert.Equal(t, tc.current.CreatedAt, got.CreatedAt)
			if tc.slaHours == nil {
				assert.Nil(t, got.SLAHours)
				assert.Nil(t, got.EscalatedUntil)
				return
			}
			require.NotNil(t, got.SLAHours)
			assert.Equal(t, *tc.slaHours, *got.SLAHours)
			require.NotNil(t, got.EscalatedUntil)
			assert.Equal(t, tc.untilFrom.Add(hoursToDuration(*tc.slaHours)), *got.EscalatedUntil)
		})
	}
}

func TestApplyChangeDoesNotMutateCurrent(t *testing.T) {
	current := escalatedAt(t0, 4)
	snapshot := current.Clone()

	_ = ApplyChange(&current, CaseChange{Status: statusPtr(domain.CaseStatusOK), Title: strPtr("new")}, t0.Add(time.Hour), DefaultSLAHours)

	assert.Equal(t, snapshot, current)
}

func TestValidateChange(t *testing.T) {
	tests := []struct {
		name     string
		change   CaseChange
		creating bool
		wantErr  bool
	}{
		{name: "create requires title", change: CaseChange{}, creating: true, wantErr: true},
		{name: "create rejects blank title", change: CaseChange{Title: strPtr("   ")}, creating: true, wantErr: true},
		{name: "update rejects blank title", change: CaseChange{Title: strPtr("")}, wantErr: true},
		{name: "update without title", change: CaseChange{Notes: strPtr("n")}},
		{name: "unknown status", change: CaseChange{Status: statusPtr("Closed")}, wantErr: true},
		{name: "negative sla", change: CaseChange{SLAHours: floatPtr(-1)}, wantErr: true},
		{name: "nan sla", change: CaseChange{SLAHours: floatPtr(math.NaN())}, wantErr: true},
		{name: "infinite sla", change: CaseChange{SLAHours: floatPtr(math.Inf(1))}, wantErr: true},
		{name: "sla overflowing duration", change: CaseChange{SLAHours: floatPtr(3e6)}, wantErr: true},
		{name: "huge sla", change: CaseChange{SLAHours: floatPtr(1e300)}, wantErr: true},
		{name: "long but representable sla", change: CaseChange{SLAHours: floatPtr(2_000_000)}},
		{name: "valid create", change: CaseChange{Title: strPtr("t"), Status: statusPtr(domain.CaseStatusOK)}, creating: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateChange(&tc.change, tc.creating)
			if tc.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateChangeTreatsZeroSLAAsAbsent(t *testing.T) {
	change := CaseChange{SLAHours: floatPtr(0), Escalated: boolPtr(true)}
	require.NoError(t, validateChange(&change, false))
	assert.Nil(t, change.SLAHours)
}

func TestExpired(t *testing.T) {
	c := escalatedAt(t0, 1)

	assert.False(t, Expired(c, t0.Add(59*time.Minute)))
	assert.True(t, Expired(c, t0.Add(time.Hour)))
	assert.True(t, Expired(c, t0.Add(2*time.Hour)))

	c.Status = domain.CaseStatusPending
	assert.False(t, Expired(c, t0.Add(2*time.Hour)))
}
