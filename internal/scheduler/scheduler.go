// Package scheduler decides which notification records must exist and
// creates them exactly once per cycle.
package scheduler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/resellhub/notify-engine/internal/catalog/domain"
	"github.com/resellhub/notify-engine/internal/clock"
	"github.com/resellhub/notify-engine/internal/config"
	"github.com/resellhub/notify-engine/internal/expiry"
	"github.com/resellhub/notify-engine/internal/notification/domain"
	obsmetrics "github.com/resellhub/notify-engine/internal/observability/metrics"
	"github.com/resellhub/notify-engine/internal/recurrence"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Services catalogdomain.ServiceCatalog
	Invoices catalogdomain.InvoiceCatalog
	Config   config.Config
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	services catalogdomain.ServiceCatalog
	invoices catalogdomain.InvoiceCatalog
	policy   expiry.Policy
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Repo == nil || p.Services == nil || p.Invoices == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		services: p.Services,
		invoices: p.Invoices,
		policy: expiry.Policy{
			Thresholds:         p.Config.Engine.ExpiryThresholds,
			GracePeriodDays:    p.Config.Engine.ExpiryGraceDays,
			DeletionWindowDays: p.Config.Engine.ExpiryDeletionDays,
		}.Normalize(),
	}, nil
}

// ScheduleDue runs one scheduling pass: it enumerates expiring services and
// active invoice reminder configs, evaluates the rules against the injected
// clock, and conditionally inserts any missing PENDING records. Losing the
// insert race to a concurrent pass is success, not an error. Existing
// records are never mutated, so this is safe to run concurrently with
// itself and with the delivery worker.
func (s *Scheduler) ScheduleDue(ctx context.Context) (int, error) {
	start := time.Now()
	engineMetrics := obsmetrics.Engine()
	now := s.clock.Now()

	created := 0
	n, err := s.scheduleExpiring(ctx, now)
	created += n
	if err == nil {
		n, err = s.scheduleInvoiceReminders(ctx, now)
		created += n
	}

	engineMetrics.ObserveJobDuration(obsmetrics.JobSchedule, time.Since(start))
	engineMetrics.ObserveBatchSize(obsmetrics.JobSchedule, created)
	if err != nil {
		engineMetrics.IncJobError(obsmetrics.JobSchedule)
		return created, err
	}

	s.log.Info("scheduling pass finished", zap.Int("scheduled", created))
	return created, nil
}

func (s *Scheduler) scheduleExpiring(ctx context.Context, now time.Time) (int, error) {
	snapshots, err := s.services.ListExpiringServices(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, snapshot := range snapshots {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		result, due := expiry.Evaluate(s.policy, snapshot.ExpiryDate, now)
		if !due {
			continue
		}

		subject, content, err := renderExpiry(snapshot, result)
		if err != nil {
			return created, err
		}

		record := &domain.Record{
			ID:             s.genID.Generate(),
			ServiceType:    snapshot.ServiceType,
			ServiceID:      snapshot.ServiceID,
			Type:           result.Type,
			CycleKey:       result.CycleKey,
			RecipientEmail: snapshot.CustomerEmail,
			Subject:        subject,
			Content:        content,
			Status:         domain.StatusPending,
			Metadata: datatypes.JSONMap{
				"rule":           "expiry",
				"expiry_date":    result.CycleKey,
				"days_remaining": strconv.Itoa(result.DaysRemaining),
			},
			CreatedAt: now,
			UpdatedAt: now,
		}

		inserted, err := s.repo.InsertIfAbsent(ctx, s.db, record)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
			obsmetrics.Engine().IncScheduled(string(result.Type))
			s.log.Info("notification scheduled",
				zap.String("id", record.ID.String()),
				zap.String("type", string(result.Type)),
				zap.String("service_type", string(snapshot.ServiceType)),
				zap.String("service_id", snapshot.ServiceID),
				zap.String("cycle_key", result.CycleKey),
			)
		}
	}
	return created, nil
}

func (s *Scheduler) scheduleInvoiceReminders(ctx context.Context, now time.Time) (int, error) {
	sources, err := s.invoices.ListActiveRecurrenceConfigs(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, source := range sources {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}

		fired := recurrence.NewFiredSet(source.FiredCycleRefs)
		for _, occurrence := range recurrence.Evaluate(source.Config, source.DueDate, now, fired) {
			subject, content, err := renderInvoice(source, occurrence)
			if err != nil {
				return created, err
			}

			scheduledAt := occurrence.ScheduledAt
			metadata := datatypes.JSONMap{
				"rule":     "recurrence",
				"due_date": isoDate(source.DueDate),
			}
			if occurrence.Type == domain.TypeInvoiceDueSoon {
				metadata["rule"] = "due_soon"
			} else {
				metadata["occurrence"] = occurrence.CycleKey
			}
			if source.Config.CCAccountingTeam {
				metadata["cc_accounting"] = "true"
			}

			record := &domain.Record{
				ID:             s.genID.Generate(),
				ServiceType:    domain.ServiceTypeInvoice,
				ServiceID:      source.InvoiceID,
				Type:           occurrence.Type,
				CycleKey:       occurrence.CycleKey,
				RecipientEmail: source.CustomerEmail,
				Subject:        subject,
				Content:        content,
				Status:         domain.StatusPending,
				ScheduledAt:    &scheduledAt,
				Metadata:       metadata,
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			inserted, err := s.repo.InsertIfAbsent(ctx, s.db, record)
			if err != nil {
				return created, err
			}
			if inserted {
				created++
				obsmetrics.Engine().IncScheduled(string(occurrence.Type))
				s.log.Info("notification scheduled",
					zap.String("id", record.ID.String()),
					zap.String("type", string(occurrence.Type)),
					zap.String("invoice_id", source.InvoiceID),
					zap.String("cycle_key", occurrence.CycleKey),
				)
			}
		}
	}
	return created, nil
}
