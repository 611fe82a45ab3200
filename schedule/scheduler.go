package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs named background jobs on cron expressions.
// Expressions use the standard five fields with an optional leading
// seconds field; all schedules are evaluated in UTC.
type Scheduler struct {
	cron    *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// Job is a unit of scheduled work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a new scheduler.
// Panics in jobs are recovered and logged, and a job still running when
// its next firing arrives is skipped rather than run concurrently.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		logger: slog.Default(),
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	cronLogger := &slogCronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithParser(cron.NewParser(
			cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
		)),
		cron.WithLocation(time.UTC),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	)

	return s, nil
}

// RegisterJob schedules a job under the given cron expression.
// Returns an error if the expression does not parse. Job errors are
// logged, never propagated; a failing job stays scheduled.
func (s *Scheduler) RegisterJob(name, expression string, job Job) error {
	logger := s.logger.With("job", name)

	_, err := s.cron.AddFunc(expression, func() {
		start := time.Now()
		logger.Info("job starting")

		if err := job(s.baseCtx); err != nil {
			logger.Error("job failed", "err", err, "duration", time.Since(start))
			return
		}
		logger.Info("job complete", "duration", time.Since(start))
	})
	if err != nil {
		return err
	}

	s.logger.Info("job registered", "job", name, "schedule", expression)
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling new runs, cancels the context passed to jobs,
// and waits for running jobs to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("scheduler stopping")
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slogCronLogger adapts slog to the cron logging interface.
type slogCronLogger struct {
	logger *slog.Logger
}

var _ cron.Logger = (*slogCronLogger)(nil)

func (l *slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
