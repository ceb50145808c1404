package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// DailyTriggerConfig holds the time of day the daily sync runs
type DailyTriggerConfig struct {
	Hour          int
	Minute        int
	CheckInterval time.Duration
	Location      *time.Location
}

// DefaultDailyTriggerConfig returns default configuration
func DefaultDailyTriggerConfig() DailyTriggerConfig {
	return DailyTriggerConfig{
		Hour:          2,
		Minute:        0,
		CheckInterval: time.Minute,
		Location:      time.UTC,
	}
}

// Validate validates the configuration
func (c *DailyTriggerConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: daily time %02d:%02d", ErrInvalidConfig, c.Hour, c.Minute)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// DailyTrigger submits one scheduled sync per day covering the first day of the
// previous month through today, so the previous month keeps receiving restated
// refunds while the current month fills in
type DailyTrigger struct {
	config    DailyTriggerConfig
	scheduler *SyncScheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   string
}

// NewDailyTrigger creates a daily trigger
func NewDailyTrigger(config DailyTriggerConfig, scheduler *SyncScheduler, logger *zap.Logger) (*DailyTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start starts the check loop
func (t *DailyTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Daily sync trigger started",
		zap.String("at", fmt.Sprintf("%02d:%02d", t.config.Hour, t.config.Minute)),
		zap.String("location", t.config.Location.String()),
	)
	return nil
}

// Stop stops the check loop
func (t *DailyTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Daily sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *DailyTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	t.check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.check()
		}
	}
}

// check submits today's job once the configured time has passed. It reports
// whether a job was submitted.
func (t *DailyTrigger) check() bool {
	local := t.now().In(t.config.Location)
	today := local.Format(time.DateOnly)
	due := time.Date(local.Year(), local.Month(), local.Day(), t.config.Hour, t.config.Minute, 0, 0, t.config.Location)

	t.mu.Lock()
	alreadyRan := t.lastRun == today
	t.mu.Unlock()
	if alreadyRan || local.Before(due) {
		return false
	}

	start, end := DailyRange(local)
	job, err := t.scheduler.ScheduleSync(start, end, false, sales.SyncTriggerScheduled)
	if err != nil {
		// retried on the next tick
		t.logger.Warn("Failed to submit daily sync job", zap.Error(err))
		return false
	}

	t.mu.Lock()
	t.lastRun = today
	t.mu.Unlock()

	t.logger.Info("Daily sync job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("start", start.Format(time.DateOnly)),
		zap.String("end", end.Format(time.DateOnly)),
	)
	return true
}

// DailyRange returns [first day of the previous month, today] for the calendar
// day of now
func DailyRange(now time.Time) (time.Time, time.Time) {
	end := sales.TruncateToDay(now)
	start := sales.MonthOf(now).Start().AddDate(0, -1, 0)
	return start, end
}
