package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/idgen"
	"github.com/spec-kit/case-service/internal/repository"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// SLAExpiredReason is recorded in the meta of automatic demotions.
const SLAExpiredReason = "escalation SLA expired"

// CaseService coordinates case workflows. Every read-modify-write of the
// collection runs under mu, which the SLA sweep shares with HTTP handlers.
type CaseService struct {
	mu              sync.Mutex
	cases           repository.CaseStore
	history         repository.HistoryLog
	ids             idgen.Generator
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	clock           func() time.Time
	defaultSLAHours float64
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	Cases           repository.CaseStore
	History         repository.HistoryLog
	IDs             idgen.Generator
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Clock           func() time.Time
	DefaultSLAHours float64
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	s := &CaseService{
		cases:           deps.Cases,
		history:         deps.History,
		ids:             deps.IDs,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		clock:           deps.Clock,
		defaultSLAHours: deps.DefaultSLAHours,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.ids == nil {
		s.ids = idgen.NewTokenGenerator("CASE")
	}
	if s.defaultSLAHours <= 0 {
		s.defaultSLAHours = DefaultSLAHours
	}
	return s
}

// Now returns the service clock in UTC at millisecond precision, the
// resolution every stored timestamp uses.
func (s *CaseService) Now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// CreateCase validates and stores a new case and records a CREATE event.
func (s *CaseService) CreateCase(ctx context.Context, change CaseChange) (CaseView, error) {
	if err := validateChange(&change, true); err != nil {
		return CaseView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return CaseView{}, err
	}
	id, err := s.ids.NextID(ctx, all)
	if err != nil {
		return CaseView{}, apperrors.NewStorageError("allocate case id", err)
	}

	now := s.Now()
	created := ApplyChange(nil, change, now, s.defaultSLAHours)
	created.ID = id

	if err := s.save(ctx, append(all, created)); err != nil {
		return CaseView{}, err
	}
	after := created.Clone()
	if err := s.record(ctx, domain.HistoryEvent{
		Timestamp: now,
		Action:    domain.HistoryActionCreate,
		CaseID:    id,
		After:     &after,
	}); err != nil {
		return CaseView{}, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventCaseCreated,
		CaseID:    id,
		Timestamp: now,
		Payload: events.CaseCreatedPayload{
			Title:     created.Title,
			Category:  created.Category,
			Status:    created.Status,
			Escalated: created.Escalated,
		},
	})
	s.logger.Info("case created", zap.String("case_id", id), zap.String("status", string(created.Status)))
	return ProjectSLA(created, now), nil
}

// UpdateCase applies a partial change to an existing case.
func (s *CaseService) UpdateCase(ctx context.Context, id string, change CaseChange) (CaseView, error) {
	if err := validateChange(&change, false); err != nil {
		return CaseView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return CaseView{}, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return CaseView{}, caseNotFound(id)
	}

	now := s.Now()
	before := all[idx].Clone()
	updated := ApplyChange(&before, change, now, s.defaultSLAHours)
	all[idx] = updated

	if err := s.save(ctx, all); err != nil {
		return CaseView{}, err
	}
	after := updated.Clone()
	if err := s.record(ctx, domain.HistoryEvent{
		Timestamp: now,
		Action:    domain.HistoryActionUpdate,
		CaseID:    id,
		Before:    &before,
		After:     &after,
	}); err != nil {
		return CaseView{}, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventCaseUpdated,
		CaseID:    id,
		Timestamp: now,
		Payload: events.CaseUpdatedPayload{
			OldStatus: before.Status,
			NewStatus: updated.Status,
			Escalated: updated.Escalated,
		},
	})
	return ProjectSLA(updated, now), nil
}

// DeleteCase hard-deletes a case. Its history stays.
func (s *CaseService) DeleteCase(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return caseNotFound(id)
	}

	before := all[idx].Clone()
	remaining := append(all[:idx:idx], all[idx+1:]...)
	if err := s.save(ctx, remaining); err != nil {
		return err
	}

	now := s.Now()
	if err := s.record(ctx, domain.HistoryEvent{
		Timestamp: now,
		Action:    domain.HistoryActionDelete,
		CaseID:    id,
		Before:    &before,
	}); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventCaseDeleted,
		CaseID:    id,
		Timestamp: now,
		Payload:   events.CaseDeletedPayload{Title: before.Title, Status: before.Status},
	})
	s.logger.Info("case deleted", zap.String("case_id", id))
	return nil
}

// GetCase returns a single case with its SLA projection.
func (s *CaseService) GetCase(ctx context.Context, id string) (CaseView, error) {
	all, err := s.load(ctx)
	if err != nil {
		return CaseView{}, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return CaseView{}, caseNotFound(id)
	}
	return ProjectSLA(all[idx], s.Now()), nil
}

// ListCases returns the cases matching filter, oldest first.
func (s *CaseService) ListCases(ctx context.Context, filter CaseFilter) ([]CaseView, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	matched := FilterCases(all, filter)
	views := make([]CaseView, 0, len(matched))
	for _, c := range matched {
		views = append(views, ProjectSLA(c, now))
	}
	return views, nil
}

// Categories returns the sorted distinct categories in use.
func (s *CaseService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return DistinctCategories(all), nil
}

// ListHistory returns history events newest first. An empty caseID
// returns the whole log, including events of deleted cases.
func (s *CaseService) ListHistory(ctx context.Context, caseID string) ([]domain.HistoryEvent, error) {
	entries, err := s.history.Query(ctx, caseID)
	if err != nil {
		return nil, apperrors.NewStorageError("query history", err)
	}
	return entries, nil
}

// SweepExpired demotes every escalated case whose SLA window has elapsed
// back to Pending. The collection is saved once and one SLA_AUTO event is
// recorded per demoted case. It returns the number of demoted cases.
func (s *CaseService) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	now := s.Now()
	pending := domain.CaseStatusPending
	var demoted []domain.HistoryEvent
	for i := range all {
		if !Expired(all[i], now) {
			continue
		}
		before := all[i].Clone()
		after := ApplyChange(&before, CaseChange{Status: &pending}, now, s.defaultSLAHours)
		all[i] = after
		snapshot := after.Clone()
		demoted = append(demoted, domain.HistoryEvent{
			Timestamp: now,
			Action:    domain.HistoryActionSLAAuto,
			CaseID:    before.ID,
			Before:    &before,
			After:     &snapshot,
			Meta: map[string]string{
				"reason":         SLAExpiredReason,
				"slaHours":       strconv.FormatFloat(*before.SLAHours, 'f', -1, 64),
				"escalatedUntil": before.EscalatedUntil.Format(time.RFC3339Nano),
			},
		})
	}
	if len(demoted) == 0 {
		return 0, nil
	}

	if err := s.save(ctx, all); err != nil {
		return 0, err
	}

	var errs []error
	for _, event := range demoted {
		if err := s.record(ctx, event); err != nil {
			errs = append(errs, err)
			continue
		}
		s.publishEvent(ctx, events.Event{
			Type:      events.EventCaseSLAExpired,
			CaseID:    event.CaseID,
			Timestamp: now,
			Payload: events.CaseSLAExpiredPayload{
				SLAHours:       *event.Before.SLAHours,
				EscalatedUntil: *event.Before.EscalatedUntil,
				Reason:         SLAExpiredReason,
			},
		})
	}
	s.logger.Info("escalations expired", zap.Int("count", len(demoted)))
	return len(demoted), errors.Join(errs...)
}

func (s *CaseService) load(ctx context.Context) ([]domain.Case, error) {
	all, err := s.cases.LoadAll(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("load cases", err)
	}
	return all, nil
}

func (s *CaseService) save(ctx context.Context, all []domain.Case) error {
	if err := s.cases.SaveAll(ctx, all); err != nil {
		return apperrors.NewStorageError("save cases", err)
	}
	return nil
}

func (s *CaseService) record(ctx context.Context, event domain.HistoryEvent) error {
	event.ID = uuid.NewString()
	if event.Meta == nil {
		event.Meta = map[string]string{}
	}
	if err := s.history.Append(ctx, event); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("append %s history for %s", event.Action, event.CaseID), err)
	}
	return nil
}

func (s *CaseService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func indexOf(all []domain.Case, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

func caseNotFound(id string) error {
	return apperrors.NewNotFound("case", map[string]any{"id": id})
}
