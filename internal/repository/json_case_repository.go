package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/persistence"
)

const (
	casesFileName   = "cases.json"
	historyFileName = "history.json"
)

type jsonCaseStore struct {
	path string
}

// NewJSONCaseStore stores the collection as a JSON array in dir/cases.json.
func NewJSONCaseStore(dir string) CaseStore {
	return &jsonCaseStore{path: filepath.Join(dir, casesFileName)}
}

func (s *jsonCaseStore) LoadAll(ctx context.Context) ([]domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cases := []domain.Case{}
	if _, err := persistence.ReadJSONFile(s.path, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func (s *jsonCaseStore) SaveAll(ctx context.Context, cases []domain.Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cases == nil {
		cases = []domain.Case{}
	}
	return persistence.WriteJSONFile(s.path, cases)
}

func (s *jsonCaseStore) Ping(context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

type jsonHistoryLog struct {
	mu   sync.Mutex
	path string
}

// NewJSONHistoryLog keeps the history as a JSON array in dir/history.json.
func NewJSONHistoryLog(dir string) HistoryLog {
	return &jsonHistoryLog{path: filepath.Join(dir, historyFileName)}
}

func (l *jsonHistoryLog) Append(ctx context.Context, event domain.HistoryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return err
	}
	events = append(events, event)
	return persistence.WriteJSONFile(l.path, events)
}

func (l *jsonHistoryLog) Query(ctx context.Context, caseID string) ([]domain.HistoryEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	events, err := l.load()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return newestFirst(events, caseID), nil
}

func (l *jsonHistoryLog) load() ([]domain.HistoryEvent, error) {
	events := []domain.HistoryEvent{}
	if _, err := persistence.ReadJSONFile(l.path, &events); err != nil {
		return nil, err
	}
	return events, nil
}
