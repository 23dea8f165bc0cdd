package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
)

func queryFixture() []domain.Case {
	esc := escalatedAt(t0.Add(2*time.Minute), 1)
	esc.ID = "CASE0003"
	esc.Title = "VPN outage"
	esc.Category = "network"
	return []domain.Case{
		esc,
		{ID: "CASE0001", Title: "Printer jam", Category: "hardware", Notes: "floor 3", Status: domain.CaseStatusPending, CreatedAt: t0},
		{ID: "CASE0002", Title: "Reset password", Category: "accounts", Notes: "vpn token too", Status: domain.CaseStatusOK, CreatedAt: t0.Add(time.Minute)},
		{ID: "CASE0004", Title: "Laptop", Status: domain.CaseStatusPending, CreatedAt: t0.Add(3 * time.Minute)},
	}
}

func ids(cases []domain.Case) []string {
	out := make([]string, 0, len(cases))
	for _, c := range cases {
		out = append(out, c.ID)
	}
	return out
}

func TestFilterCases(t *testing.T) {
	tests := []struct {
		name   string
		filter CaseFilter
		want   []string
	}{
		{name: "no constraint orders by creation", filter: CaseFilter{}, want: []string{"CASE0001", "CASE0002", "CASE0003", "CASE0004"}},
		{name: "text matches title and notes", filter: CaseFilter{Query: "VPN"}, want: []string{"CASE0002", "CASE0003"}},
		{name: "text matches id", filter: CaseFilter{Query: "case0004"}, want: []string{"CASE0004"}},
		{name: "text matches category", filter: CaseFilter{Query: "hard"}, want: []string{"CASE0001"}},
		{name: "category exact", filter: CaseFilter{Category: "network"}, want: []string{"CASE0003"}},
		{name: "category all sentinel", filter: CaseFilter{Category: "Todas"}, want: []string{"CASE0001", "CASE0002", "CASE0003", "CASE0004"}},
		{name: "status exact", filter: CaseFilter{Status: "Pending"}, want: []string{"CASE0001", "CASE0004"}},
		{name: "status all sentinel", filter: CaseFilter{Status: "ALL"}, want: []string{"CASE0001", "CASE0002", "CASE0003", "CASE0004"}},
		{name: "escalated only", filter: CaseFilter{Escalated: boolPtr(true)}, want: []string{"CASE0003"}},
		{name: "not escalated", filter: CaseFilter{Escalated: boolPtr(false)}, want: []string{"CASE0001", "CASE0002", "CASE0004"}},
		{name: "constraints combine", filter: CaseFilter{Query: "vpn", Status: "OK"}, want: []string{"CASE0002"}},
		{name: "no match", filter: CaseFilter{Query: "vpn", Category: "hardware"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(FilterCases(queryFixture(), tc.filter)))
		})
	}
}

func TestProjectSLA(t *testing.T) {
	c := escalatedAt(t0, 1)

	view := ProjectSLA(c, t0.Add(10*time.Minute+500*time.Millisecond))
	require.NotNil(t, view.RemainingSLASeconds)
	assert.Equal(t, int64(49*60+59), *view.RemainingSLASeconds)

	overdue := ProjectSLA(c, t0.Add(3*time.Hour))
	require.NotNil(t, overdue.RemainingSLASeconds)
	assert.Equal(t, int64(0), *overdue.RemainingSLASeconds)

	assert.Nil(t, ProjectSLA(domain.Case{Status: domain.CaseStatusPending}, t0).RemainingSLASeconds)
}

func TestDistinctCategories(t *testing.T) {
	cases := append(queryFixture(), domain.Case{ID: "CASE0005", Category: "hardware"})
	assert.Equal(t, []string{"accounts", "hardware", "network"}, DistinctCategories(cases))
	assert.Equal(t, []string{}, DistinctCategories(nil))
}
