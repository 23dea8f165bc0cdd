package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/observability"
)

// DefaultSweepInterval is used when no positive interval is configured.
const DefaultSweepInterval = 60 * time.Second

// ExpirySweeper performs one SLA expiry pass and reports how many cases
// it demoted.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SLASweeper runs the expiry pass on a fixed interval. Overlapping runs
// are skipped and a panicking run is recovered, so a bad pass never takes
// the process down; failures are logged and retried on the next tick.
type SLASweeper struct {
	sweeper  ExpirySweeper
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSLASweeper builds a sweeper. Start must be called to schedule it.
func NewSLASweeper(sweeper ExpirySweeper, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *SLASweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := zapCronLogger{logger: logger.Named("sla-sweeper")}
	return &SLASweeper{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
}

// Start schedules the sweep every interval. Runs use a context derived
// from ctx that is cancelled by Stop.
func (s *SLASweeper) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.RunOnce(s.ctx)
	}); err != nil {
		s.cancel()
		return fmt.Errorf("schedule sla sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("sla sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// RunOnce performs a single sweep and returns the number of demoted cases.
func (s *SLASweeper) RunOnce(ctx context.Context) int {
	start := time.Now()
	demoted, err := s.sweeper.SweepExpired(ctx)
	s.metrics.RecordSweep(demoted, err, time.Since(start))
	if err != nil {
		s.logger.Error("sla sweep failed", zap.Int("demoted", demoted), zap.Error(err))
		return demoted
	}
	if demoted > 0 {
		s.logger.Info("sla sweep demoted cases", zap.Int("demoted", demoted))
	}
	return demoted
}

// Stop halts scheduling and waits for an in-flight sweep to finish or for
// ctx to expire.
func (s *SLASweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		if s.cancel != nil {
			s.cancel()
		}
		return ctx.Err()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("sla sweeper stopped")
	return nil
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("fields", keysAndValues))
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("fields", keysAndValues))
}
