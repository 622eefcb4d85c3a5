package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/resellhub/notify-engine/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows List results; nil fields match everything.
type ListFilter struct {
	Status      *Status
	Type        *Type
	ServiceType *ServiceType
	ServiceID   string
}

type Repository interface {
	// InsertIfAbsent performs the conditional create backing the dedup
	// invariant. It returns false without error when the cycle quadruple
	// already exists.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, record *Record) (bool, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Record, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Record, int64, error)

	// ListCycleRefs returns the (type, cycle key) pairs of all non-cancelled
	// records for one service, used to seed the recurrence evaluator's fired
	// set. Keys are tracked per type because the expiry and invoice families
	// derive them differently and must never collide.
	ListCycleRefs(ctx context.Context, db *gorm.DB, serviceType ServiceType, serviceID string) ([]CycleRef, error)

	// FetchDue selects records eligible for delivery: PENDING, or FAILED
	// under the retry ceiling, with scheduled_at null or in the past.
	FetchDue(ctx context.Context, db *gorm.DB, now time.Time, maxRetries int, limit int) ([]*Record, error)

	// Claim transitions a record into SENDING iff it is still selectable.
	// Returns false when another worker won the race.
	Claim(ctx context.Context, db *gorm.DB, id snowflake.ID, maxRetries int, now time.Time) (bool, error)

	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errMessage string, nextAttempt *time.Time, now time.Time) error

	// Update persists a manual edit iff the record still carries the status
	// observed at load time. Returns false when a concurrent writer moved
	// the record first; nothing is written in that case.
	Update(ctx context.Context, db *gorm.DB, record *Record, observed Status) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
