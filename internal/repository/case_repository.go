package repository

import (
	"context"
	"sort"

	"github.com/spec-kit/case-service/internal/domain"
)

// CaseStore persists the whole case collection. Every mutation loads the
// collection, changes it in memory and writes it back with SaveAll.
type CaseStore interface {
	LoadAll(ctx context.Context) ([]domain.Case, error)
	SaveAll(ctx context.Context, cases []domain.Case) error
	Ping(ctx context.Context) error
}

// HistoryLog is the append-only case audit trail.
type HistoryLog interface {
	Append(ctx context.Context, event domain.HistoryEvent) error
	// Query returns events newest first, restricted to caseID when non-empty.
	Query(ctx context.Context, caseID string) ([]domain.HistoryEvent, error)
}

// newestFirst filters events kept in append order and sorts them by
// timestamp descending; ties keep the most recently appended first.
func newestFirst(events []domain.HistoryEvent, caseID string) []domain.HistoryEvent {
	out := make([]domain.HistoryEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		if caseID != "" && events[i].CaseID != caseID {
			continue
		}
		out = append(out, events[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
