package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/resellhub/notify-engine/internal/clock"
	"github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p ServiceParam) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	records, total, err := s.repo.List(ctx, s.db, req.Filter, req.Page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{
		Notifications: records,
		PageInfo:      pagination.BuildPageInfo(req.Page.Normalize(), total),
	}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Update applies a partial edit. SENT records are immutable; status changes
// are limited to the manual pause/resume transitions plus releasing a
// stranded claim, everything else in the state machine belongs to the
// delivery worker. The write is guarded on the status observed here, so a
// record the worker delivers mid-edit stays SENT and the edit reports a
// conflict instead of rewinding it.
func (s *service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Record, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == domain.StatusSent {
		return nil, domain.ErrImmutableRecord
	}
	observed := record.Status

	if req.Subject != nil {
		record.Subject = *req.Subject
	}
	if req.Content != nil {
		record.Content = *req.Content
	}
	if req.ScheduledAt != nil {
		scheduledAt := req.ScheduledAt.UTC()
		record.ScheduledAt = &scheduledAt
	}
	if req.Status != nil && *req.Status != record.Status {
		if err := s.applyStatusChange(record, *req.Status); err != nil {
			return nil, err
		}
	}

	record.UpdatedAt = s.clock.Now()
	updated, err := s.repo.Update(ctx, s.db, record, observed)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrUpdateConflict
	}

	s.log.Info("notification updated",
		zap.String("id", record.ID.String()),
		zap.String("status", string(record.Status)),
	)
	return record, nil
}

func (s *service) Cancel(ctx context.Context, id string) (*domain.Record, error) {
	status := domain.StatusCancelled
	return s.Update(ctx, id, domain.UpdateRequest{Status: &status})
}

func (s *service) Resume(ctx context.Context, id string) (*domain.Record, error) {
	status := domain.StatusPending
	return s.Update(ctx, id, domain.UpdateRequest{Status: &status})
}

// Delete is an administrative hard delete. It bypasses lifecycle rules.
func (s *service) Delete(ctx context.Context, id string) error {
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, record.ID); err != nil {
		return err
	}
	s.log.Warn("notification hard-deleted", zap.String("id", record.ID.String()))
	return nil
}

func (s *service) applyStatusChange(record *domain.Record, target domain.Status) error {
	switch {
	case record.Status == domain.StatusPending && target == domain.StatusCancelled:
		record.Status = domain.StatusCancelled
	case record.Status == domain.StatusCancelled && target == domain.StatusPending:
		// Resume resets nothing else; retry count survives the round trip.
		record.Status = domain.StatusPending
	case record.Status == domain.StatusFailed && target == domain.StatusPending:
		// Manual recovery of a terminally failed record starts a fresh
		// retry budget.
		record.Status = domain.StatusPending
		record.RetryCount = 0
		record.ErrorMessage = ""
	case record.Status == domain.StatusSending && target == domain.StatusPending:
		// Releases a claim stranded by a worker crash. The attempt never
		// completed, so the retry count stays as claimed. The guarded write
		// keeps this from racing a live worker: if MarkSent lands first the
		// reset misses and reports a conflict.
		record.Status = domain.StatusPending
	case record.Status == domain.StatusSending && target == domain.StatusCancelled:
		record.Status = domain.StatusCancelled
	default:
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

func (s *service) load(ctx context.Context, id string) (*domain.Record, error) {
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	record, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}
