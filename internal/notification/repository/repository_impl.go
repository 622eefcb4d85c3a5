package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/pkg/db"
	"github.com/resellhub/notify-engine/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, gdb *gorm.DB, record *domain.Record) (bool, error) {
	err := gdb.WithContext(ctx).Exec(
		`INSERT INTO notification_records (
			id, service_type, service_id, type, cycle_key,
			recipient_email, subject, content, status, scheduled_at,
			error_message, retry_count, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ServiceType,
		record.ServiceID,
		record.Type,
		record.CycleKey,
		record.RecipientEmail,
		record.Subject,
		record.Content,
		record.Status,
		record.ScheduledAt,
		record.ErrorMessage,
		record.RetryCount,
		record.Metadata,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindByID(ctx context.Context, gdb *gorm.DB, id snowflake.ID) (*domain.Record, error) {
	var record domain.Record
	err := gdb.WithContext(ctx).Raw(
		`SELECT * FROM notification_records WHERE id = ?`,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, gdb *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Record, int64, error) {
	page = page.Normalize()

	stmt := gdb.WithContext(ctx).Model(&domain.Record{})
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		stmt = stmt.Where("type = ?", *filter.Type)
	}
	if filter.ServiceType != nil {
		stmt = stmt.Where("service_type = ?", *filter.ServiceType)
	}
	if filter.ServiceID != "" {
		stmt = stmt.Where("service_id = ?", filter.ServiceID)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*domain.Record
	err := stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repo) ListCycleRefs(ctx context.Context, gdb *gorm.DB, serviceType domain.ServiceType, serviceID string) ([]domain.CycleRef, error) {
	var refs []domain.CycleRef
	err := gdb.WithContext(ctx).Raw(
		`SELECT type, cycle_key FROM notification_records
		 WHERE service_type = ? AND service_id = ? AND status <> ?`,
		serviceType,
		serviceID,
		domain.StatusCancelled,
	).Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *repo) FetchDue(ctx context.Context, gdb *gorm.DB, now time.Time, maxRetries int, limit int) ([]*domain.Record, error) {
	var records []*domain.Record
	// Null scheduled_at means "as soon as picked up", so it sorts first on
	// every dialect.
	err := gdb.WithContext(ctx).Raw(
		`SELECT * FROM notification_records
		 WHERE status IN (?, ?)
		   AND (scheduled_at IS NULL OR scheduled_at <= ?)
		   AND (status = ? OR retry_count < ?)
		 ORDER BY CASE WHEN scheduled_at IS NULL THEN 0 ELSE 1 END ASC,
		          scheduled_at ASC, created_at ASC
		 LIMIT ?`,
		domain.StatusPending,
		domain.StatusFailed,
		now,
		domain.StatusPending,
		maxRetries,
		limit,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Claim(ctx context.Context, gdb *gorm.DB, id snowflake.ID, maxRetries int, now time.Time) (bool, error) {
	result := gdb.WithContext(ctx).Exec(
		`UPDATE notification_records
		 SET status = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN (?, ?)
		   AND (status = ? OR retry_count < ?)`,
		domain.StatusSending,
		now,
		id,
		domain.StatusPending,
		domain.StatusFailed,
		domain.StatusPending,
		maxRetries,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkSent(ctx context.Context, gdb *gorm.DB, id snowflake.ID, now time.Time) error {
	return gdb.WithContext(ctx).Exec(
		`UPDATE notification_records
		 SET status = ?, sent_at = ?, error_message = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusSent,
		now,
		now,
		id,
		domain.StatusSending,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, gdb *gorm.DB, id snowflake.ID, errMessage string, nextAttempt *time.Time, now time.Time) error {
	return gdb.WithContext(ctx).Exec(
		`UPDATE notification_records
		 SET status = ?, retry_count = retry_count + 1, error_message = ?,
		     scheduled_at = COALESCE(?, scheduled_at), updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFailed,
		errMessage,
		nextAttempt,
		now,
		id,
		domain.StatusSending,
	).Error
}

func (r *repo) Update(ctx context.Context, gdb *gorm.DB, record *domain.Record, observed domain.Status) (bool, error) {
	// Guarded like Claim: a write from a stale snapshot must never rewind a
	// record the worker moved in the meantime.
	result := gdb.WithContext(ctx).Exec(
		`UPDATE notification_records
		 SET subject = ?, content = ?, status = ?, scheduled_at = ?,
		     retry_count = ?, error_message = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		record.Subject,
		record.Content,
		record.Status,
		record.ScheduledAt,
		record.RetryCount,
		record.ErrorMessage,
		record.UpdatedAt,
		record.ID,
		observed,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, gdb *gorm.DB, id snowflake.ID) error {
	return gdb.WithContext(ctx).Exec(
		`DELETE FROM notification_records WHERE id = ?`,
		id,
	).Error
}
