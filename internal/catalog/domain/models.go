// Package domain defines the read-only views of the reseller catalog the
// engine consumes. The dashboard owns these tables; the engine only needs
// enough of them to decide which reminders must exist.
package domain

import (
	"context"
	"time"

	notificationdomain "github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/internal/recurrence"
)

// ServiceSnapshot is one expiring domain/hosting/VPS service.
type ServiceSnapshot struct {
	ServiceType   notificationdomain.ServiceType
	ServiceID     string
	ServiceName   string
	CustomerEmail string
	ExpiryDate    time.Time
}

// InvoiceReminderSource is one invoice with an active reminder schedule,
// together with the cycles already notified for it.
type InvoiceReminderSource struct {
	InvoiceID      string
	InvoiceNumber  string
	CustomerEmail  string
	TotalAmount    int64
	Currency       string
	DueDate        time.Time
	Config         recurrence.Config
	FiredCycleRefs []notificationdomain.CycleRef
}

type ServiceCatalog interface {
	ListExpiringServices(ctx context.Context) ([]ServiceSnapshot, error)
}

type InvoiceCatalog interface {
	ListActiveRecurrenceConfigs(ctx context.Context) ([]InvoiceReminderSource, error)
}
