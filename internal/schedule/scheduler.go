package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named background task. The embedding sync is the only one the
// assistant runs, but the contract stays small enough for more.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner drives jobs on standard 5-field cron specs. A run that outlasts
// its interval is not stacked: the next tick is skipped with a log line,
// which matters for the sync job since a large re-embedding backlog can
// exceed one interval.
type Runner struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewRunner() *Runner {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Runner{cron: cron.New(cron.WithParser(parser))}
}

func (r *Runner) Schedule(job Job, spec string) error {
	logger := logutil.GetLogger(context.Background()).With(
		zap.String("job", job.Name()),
		zap.String("spec", spec),
	)
	if _, err := r.cron.AddFunc(spec, r.wrap(job)); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	logger.Info("job scheduled")
	return nil
}

// Start binds the runner to ctx; jobs observe its cancellation.
func (r *Runner) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx = ctx
	r.cron.Start()
}

// Stop halts scheduling and waits for an in-flight run to return.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) wrap(job Job) func() {
	var busy atomic.Bool
	return func() {
		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		if !busy.CompareAndSwap(false, true) {
			logger.Info("previous run still active, skipping tick")
			return
		}
		defer busy.Store(false)

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logger.Error("job run failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
			return
		}
		logger.Info("job run complete", zap.Duration("elapsed", time.Since(start)))
	}
}
