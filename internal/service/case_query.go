package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// CaseFilter describes listing constraints. Empty values and the "all"
// sentinels mean no constraint; all constraints combine with AND.
type CaseFilter struct {
	Query     string
	Category  string
	Status    string
	Escalated *bool
}

// CaseView is a case annotated with its derived SLA projection.
type CaseView struct {
	domain.Case
	RemainingSLASeconds *int64
}

// Matches reports whether c satisfies every constraint of the filter.
func (f CaseFilter) Matches(c domain.Case) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !containsFold(c.Title, q) && !containsFold(c.Notes, q) && !containsFold(c.Category, q) && !containsFold(c.ID, q) {
			return false
		}
	}
	if !isAllSentinel(f.Category) && c.Category != f.Category {
		return false
	}
	if !isAllSentinel(f.Status) && string(c.Status) != f.Status {
		return false
	}
	if f.Escalated != nil && c.Escalated != *f.Escalated {
		return false
	}
	return true
}

// FilterCases returns the matching cases ordered by creation time.
func FilterCases(cases []domain.Case, filter CaseFilter) []domain.Case {
	out := make([]domain.Case, 0, len(cases))
	for _, c := range cases {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ProjectSLA derives remainingSlaSeconds: nil unless Escalated, otherwise
// the whole seconds left until the deadline, floored at zero.
func ProjectSLA(c domain.Case, now time.Time) CaseView {
	view := CaseView{Case: c}
	if c.Status != domain.CaseStatusEscalated || c.EscalatedUntil == nil {
		return view
	}
	remaining := int64(math.Floor(c.EscalatedUntil.Sub(now).Seconds()))
	if remaining < 0 {
		remaining = 0
	}
	view.RemainingSLASeconds = &remaining
	return view
}

// DistinctCategories returns the sorted set of non-empty categories.
func DistinctCategories(cases []domain.Case) []string {
	seen := make(map[string]struct{}, len(cases))
	out := make([]string, 0)
	for _, c := range cases {
		if c.Category == "" {
			continue
		}
		if _, ok := seen[c.Category]; ok {
			continue
		}
		seen[c.Category] = struct{}{}
		out = append(out, c.Category)
	}
	sort.Strings(out)
	return out
}

func isAllSentinel(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all", "todas", "todos":
		return true
	}
	return false
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}
