package domain

import (
	"context"
	"time"

	"github.com/resellhub/notify-engine/pkg/db/pagination"
)

type ListRequest struct {
	Filter ListFilter
	Page   pagination.Pagination
}

type ListResponse struct {
	Notifications []*Record           `json:"notifications"`
	PageInfo      pagination.PageInfo `json:"page_info"`
}

// UpdateRequest is a partial edit. Nil fields are left untouched. Status may
// only move between PENDING and CANCELLED from here; the worker owns the rest
// of the state machine.
type UpdateRequest struct {
	Subject     *string
	Content     *string
	Status      *Status
	ScheduledAt *time.Time
}

// Service is the lifecycle controller exposed to the admin surface.
type Service interface {
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Record, error)
	Cancel(ctx context.Context, id string) (*Record, error)
	Resume(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}
