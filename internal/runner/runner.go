// Package runner drives the engine's periodic passes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resellhub/notify-engine/internal/clock"
	"github.com/resellhub/notify-engine/internal/config"
	"github.com/resellhub/notify-engine/internal/scheduler"
	"github.com/resellhub/notify-engine/internal/worker"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("runner: missing dependency")

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Scheduler *scheduler.Scheduler
	Worker    *worker.Worker
	Config    config.Config
}

type Runner struct {
	log       *zap.Logger
	clock     clock.Clock
	scheduler *scheduler.Scheduler
	worker    *worker.Worker
	interval  time.Duration
}

func New(p Params) (*Runner, error) {
	if p.Log == nil || p.Clock == nil || p.Scheduler == nil || p.Worker == nil {
		return nil, ErrInvalidConfig
	}
	interval := p.Config.Engine.RunInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		log:       p.Log.Named("runner").With(zap.String("component", "runner")),
		clock:     p.Clock,
		scheduler: p.Scheduler,
		worker:    p.Worker,
		interval:  interval,
	}, nil
}

// RunOnce executes one scheduling pass followed by one delivery pass. A
// scheduling failure does not suppress delivery; records created before the
// failure are still eligible and older records still need attempts.
func (r *Runner) RunOnce(ctx context.Context) error {
	var err error

	if _, scheduleErr := r.scheduler.ScheduleDue(ctx); scheduleErr != nil {
		err = errors.Join(err, fmt.Errorf("schedule_due: %w", scheduleErr))
	}
	if _, processErr := r.worker.ProcessDue(ctx); processErr != nil {
		err = errors.Join(err, fmt.Errorf("process_due: %w", processErr))
	}

	return err
}

// RunForever loops RunOnce on the configured interval until ctx is done.
func (r *Runner) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("engine run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
