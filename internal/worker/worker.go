// Package worker delivers claimed notification records over email and
// records the outcome of every attempt.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/resellhub/notify-engine/internal/clock"
	"github.com/resellhub/notify-engine/internal/config"
	"github.com/resellhub/notify-engine/internal/notification/domain"
	obsmetrics "github.com/resellhub/notify-engine/internal/observability/metrics"
	"github.com/resellhub/notify-engine/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("worker: missing dependency")

// Summary reports one delivery pass. Processed counts records this worker
// claimed and attempted; Failed counts the subset whose send failed.
type Summary struct {
	Processed int
	Failed    int
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Mailer email.Provider
	Repo   domain.Repository
	Config config.Config
}

type Worker struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	mailer email.Provider
	repo   domain.Repository

	maxRetries      int
	batchSize       int
	backoffBase     time.Duration
	backoffCap      time.Duration
	sendTimeout     time.Duration
	accountingEmail string
}

func New(p Params) (*Worker, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Mailer == nil || p.Repo == nil {
		return nil, ErrInvalidConfig
	}
	w := &Worker{
		db:              p.DB,
		log:             p.Log.Named("worker").With(zap.String("component", "worker")),
		clock:           p.Clock,
		mailer:          p.Mailer,
		repo:            p.Repo,
		maxRetries:      p.Config.Engine.MaxRetries,
		batchSize:       p.Config.Engine.WorkerBatchSize,
		backoffBase:     p.Config.Engine.RetryBackoffBase,
		backoffCap:      p.Config.Engine.RetryBackoffCap,
		sendTimeout:     p.Config.Engine.SendTimeout,
		accountingEmail: p.Config.Email.AccountingEmail,
	}
	if w.maxRetries <= 0 {
		w.maxRetries = 3
	}
	if w.batchSize <= 0 {
		w.batchSize = 50
	}
	if w.backoffBase <= 0 {
		w.backoffBase = 5 * time.Minute
	}
	if w.sendTimeout <= 0 {
		w.sendTimeout = 30 * time.Second
	}
	return w, nil
}

// ProcessDue runs one delivery pass using the configured batch size.
func (w *Worker) ProcessDue(ctx context.Context) (Summary, error) {
	return w.ProcessBatch(ctx, w.batchSize)
}

// ProcessBatch runs one delivery pass over at most batchSize due records.
// Each record is claimed individually so concurrent workers never double
// deliver, and a provider failure on one record never blocks the rest of
// the batch. Store errors abort the pass; the summary still reflects the
// records handled before the abort.
func (w *Worker) ProcessBatch(ctx context.Context, batchSize int) (Summary, error) {
	start := time.Now()
	engineMetrics := obsmetrics.Engine()

	if batchSize <= 0 {
		batchSize = w.batchSize
	}

	var summary Summary
	now := w.clock.Now()

	records, err := w.repo.FetchDue(ctx, w.db, now, w.maxRetries, batchSize)
	if err != nil {
		engineMetrics.IncJobError(obsmetrics.JobProcess)
		return summary, err
	}

	for _, record := range records {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}

		claimed, claimErr := w.repo.Claim(ctx, w.db, record.ID, w.maxRetries, w.clock.Now())
		if claimErr != nil {
			err = claimErr
			break
		}
		if !claimed {
			continue
		}

		summary.Processed++
		if storeErr := w.deliver(ctx, record, &summary); storeErr != nil {
			err = storeErr
			break
		}
	}

	engineMetrics.ObserveJobDuration(obsmetrics.JobProcess, time.Since(start))
	engineMetrics.ObserveBatchSize(obsmetrics.JobProcess, summary.Processed)
	if err != nil {
		engineMetrics.IncJobError(obsmetrics.JobProcess)
		return summary, err
	}

	w.log.Info("delivery pass finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// deliver sends one claimed record and persists the outcome. The returned
// error is a store error only; send failures are absorbed into the record.
func (w *Worker) deliver(ctx context.Context, record *domain.Record, summary *Summary) error {
	sendErr := w.send(ctx, record)
	now := w.clock.Now()

	if sendErr == nil {
		if err := w.repo.MarkSent(ctx, w.db, record.ID, now); err != nil {
			return err
		}
		obsmetrics.Engine().IncDeliveryAttempt(obsmetrics.DeliveryOutcomeSent)
		w.log.Info("notification sent",
			zap.String("id", record.ID.String()),
			zap.String("type", string(record.Type)),
			zap.String("recipient", record.RecipientEmail),
		)
		return nil
	}

	summary.Failed++
	deliveryErr := &domain.DeliveryError{Err: sendErr}

	// RetryCount on the fetched row predates this attempt; MarkFailed bumps it.
	attempts := record.RetryCount + 1
	if attempts < w.maxRetries {
		nextAttempt := now.Add(w.backoff(record.RetryCount))
		if err := w.repo.MarkFailed(ctx, w.db, record.ID, deliveryErr.Error(), &nextAttempt, now); err != nil {
			return err
		}
		obsmetrics.Engine().IncDeliveryAttempt(obsmetrics.DeliveryOutcomeFailed)
		w.log.Warn("notification delivery failed, will retry",
			zap.String("id", record.ID.String()),
			zap.Int("attempt", attempts),
			zap.Time("next_attempt", nextAttempt),
			zap.Error(sendErr),
		)
		return nil
	}

	if err := w.repo.MarkFailed(ctx, w.db, record.ID, deliveryErr.Error(), nil, now); err != nil {
		return err
	}
	obsmetrics.Engine().IncDeliveryAttempt(obsmetrics.DeliveryOutcomeExhausted)
	w.log.Error("notification delivery failed permanently",
		zap.String("id", record.ID.String()),
		zap.Int("attempt", attempts),
		zap.Error(sendErr),
	)
	return nil
}

func (w *Worker) send(ctx context.Context, record *domain.Record) error {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	return w.mailer.Send(sendCtx, w.recipients(record), record.Subject, record.Content)
}

// recipients returns the customer address plus the accounting CC when the
// record was scheduled with cc_accounting set and an accounting address is
// configured.
func (w *Worker) recipients(record *domain.Record) []string {
	to := []string{record.RecipientEmail}
	if w.accountingEmail == "" || record.Metadata == nil {
		return to
	}
	if cc, ok := record.Metadata["cc_accounting"].(string); ok && cc == "true" {
		to = append(to, w.accountingEmail)
	}
	return to
}

// backoff returns the delay before the next attempt, doubling per prior
// failure and capped at the configured ceiling.
func (w *Worker) backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := w.backoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if w.backoffCap > 0 && delay >= w.backoffCap {
			return w.backoffCap
		}
	}
	if w.backoffCap > 0 && delay > w.backoffCap {
		return w.backoffCap
	}
	return delay
}
