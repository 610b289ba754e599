package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs PrunePast on a cron schedule.
type Scheduler struct {
	mu      sync.Mutex
	c       *cron.Cron
	svc     *Service
	logger  *slog.Logger
	spec    string
	timeout time.Duration
	started bool
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@daily") and returns a stopped Scheduler. The job fires in loc, and
// svc takes "today" in the same zone so the prune boundary follows the
// schedule rather than the host's zone.
func NewScheduler(svc *Service, spec string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Scheduler{
		c:       cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		svc:     svc,
		logger:  logger,
		spec:    spec,
		timeout: time.Minute,
	}

	if _, err := s.c.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("schedule prune %q: %w", spec, err)
	}
	svc.SetLocation(loc)
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.svc.PrunePast(ctx)
	if err != nil {
		s.logger.Error("prune past reminders failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("prune finished",
		slog.Int64("deleted", n),
		slog.Duration("took", time.Since(start)),
	)
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.c.Start()
	s.logger.Info("prune scheduler started", slog.String("schedule", s.spec))
}

// Stop halts the scheduler and waits for a running job to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.c.Stop().Done():
		s.logger.Info("prune scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop prune scheduler: %w", err)
	}
	return nil
}
