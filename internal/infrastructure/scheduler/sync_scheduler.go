package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/domain/sales"
)

const (
	jobQueueSize      = 100
	defaultMaxHistory = 100
)

// SyncExecutor runs one sync job and returns the resulting run
type SyncExecutor interface {
	Execute(ctx context.Context, job *SyncJob) (*sales.SyncRun, error)
}

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// MaxConcurrentJobs is the number of workers
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retries for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (exponential backoff)
	RetryDelay time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		MaxConcurrentJobs: 1,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", ErrInvalidConfig)
	}
	if c.RetryAttempts > 0 && c.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry delay must be positive", ErrInvalidConfig)
	}
	return nil
}

// SyncScheduler runs sync jobs on a bounded worker pool
type SyncScheduler struct {
	config   SyncSchedulerConfig
	executor SyncExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	retries   map[*SyncJob]*time.Timer

	historyMu  sync.RWMutex
	history    []*SyncJob
	maxHistory int
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, executor SyncExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SyncScheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		retries:    make(map[*SyncJob]*time.Timer),
		history:    make([]*SyncJob, 0, defaultMaxHistory),
		maxHistory: defaultMaxHistory,
	}, nil
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.jobs = make(chan *SyncJob, jobQueueSize)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i, s.jobs)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for job, timer := range s.retries {
		timer.Stop()
		delete(s.retries, job)
	}
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler accepts jobs
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job without blocking
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("trigger", string(job.Trigger)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleSync creates and queues a job for [start, end] and returns a copy of
// it as submitted
func (s *SyncScheduler) ScheduleSync(start, end time.Time, force bool, trigger sales.SyncTrigger) (SyncJob, error) {
	job := NewSyncJob(start, end, force, trigger, s.config.RetryAttempts)
	submitted := job.snapshot()
	if err := s.SubmitJob(job); err != nil {
		return SyncJob{}, err
	}
	return submitted, nil
}

func (s *SyncScheduler) worker(ctx context.Context, workerID int, jobs <-chan *SyncJob) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Begin()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.Int("attempt", job.RetryCount+1),
	)
	log.Info("Processing sync job",
		zap.Time("start", job.Start),
		zap.Time("end", job.End),
		zap.Bool("force", job.Force),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	run, err := s.executor.Execute(jobCtx, job)
	if err != nil {
		if run != nil {
			id := run.ID
			job.RunID = &id
		}
		job.Fail(err.Error())
		log.Error("Sync job failed", zap.Error(err))
		s.addToHistory(job)

		if job.ShouldRetry() && ctx.Err() == nil {
			delay := job.ScheduleRetry(s.config.RetryDelay)
			log.Info("Sync job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Duration("delay", delay),
			)
			s.scheduleRetry(job, delay)
		}
		return
	}

	job.Complete(run)
	log.Info("Sync job completed",
		zap.String("status", string(job.Status)),
		zap.Int("sales_rows", job.SalesRows),
		zap.Strings("failed_shops", job.FailedShops),
	)
	s.addToHistory(job)
}

// scheduleRetry resubmits job after delay unless the scheduler stops first
func (s *SyncScheduler) scheduleRetry(job *SyncJob, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}

	s.retries[job] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.retries, job)
		s.mu.Unlock()

		if err := s.SubmitJob(job); err != nil && !errors.Is(err, ErrSchedulerNotRunning) {
			s.logger.Warn("Failed to re-queue sync job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
}

// addToHistory records a snapshot of a finished attempt, newest first
func (s *SyncScheduler) addToHistory(job *SyncJob) {
	snap := job.snapshot()

	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{&snap}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job attempts, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]SyncJob, limit)
	for i := 0; i < limit; i++ {
		result[i] = *s.history[i]
	}
	return result
}
