// Package domain contains the notification record model and its lifecycle rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status represents notification lifecycle states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSending   Status = "SENDING"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ServiceType identifies which catalog entity a notification refers to.
type ServiceType string

const (
	ServiceTypeDomain  ServiceType = "DOMAIN"
	ServiceTypeHosting ServiceType = "HOSTING"
	ServiceTypeVPS     ServiceType = "VPS"
	ServiceTypeInvoice ServiceType = "INVOICE"
)

// Type is the notification kind. The expiry family keys its cycle on the
// service expiry date; the invoice family keys on occurrence or due dates.
// The two derivations never mix.
type Type string

const (
	TypeExpiringSoon1   Type = "EXPIRING_SOON_1"
	TypeExpiringSoon2   Type = "EXPIRING_SOON_2"
	TypeExpiringSoon3   Type = "EXPIRING_SOON_3"
	TypeExpired         Type = "EXPIRED"
	TypeDeletionWarning Type = "DELETION_WARNING"
	TypeDeleted         Type = "DELETED"
	TypeInvoiceReminder Type = "INVOICE_REMINDER"
	TypeInvoiceDueSoon  Type = "INVOICE_DUE_SOON"
)

// Record is one scheduled email. The (service_type, service_id, type,
// cycle_key) quadruple is unique so a reminder is created at most once per
// cycle no matter how often the scheduler runs.
//
// Metadata keys written by the scheduler:
//
//	rule            "expiry" | "recurrence" | "due_soon"
//	expiry_date     ISO date of the service expiry (expiry family)
//	days_remaining  whole days until expiry at evaluation time (expiry family)
//	occurrence      ISO date of the reminder occurrence (INVOICE_REMINDER)
//	due_date        ISO date of the invoice due date (INVOICE_DUE_SOON)
//	cc_accounting   "true" when the reminder config asks to CC accounting
type Record struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ServiceType    ServiceType       `gorm:"type:text;not null;index;uniqueIndex:ux_notification_cycle" json:"service_type"`
	ServiceID      string            `gorm:"type:text;not null;uniqueIndex:ux_notification_cycle" json:"service_id"`
	Type           Type              `gorm:"type:text;not null;index;uniqueIndex:ux_notification_cycle" json:"type"`
	CycleKey       string            `gorm:"type:text;not null;uniqueIndex:ux_notification_cycle" json:"cycle_key"`
	RecipientEmail string            `gorm:"type:text;not null" json:"recipient_email"`
	Subject        string            `gorm:"type:text;not null" json:"subject"`
	Content        string            `gorm:"type:text;not null" json:"content"`
	Status         Status            `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	ScheduledAt    *time.Time        `gorm:"index" json:"scheduled_at"`
	SentAt         *time.Time        `gorm:"" json:"sent_at"`
	ErrorMessage   string            `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount     int               `gorm:"not null;default:0" json:"retry_count"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "notification_records" }

// CycleRef identifies one notified cycle of a service.
type CycleRef struct {
	Type     Type
	CycleKey string
}

// Terminal reports whether the worker may never pick this record up again.
func (r Record) Terminal(maxRetries int) bool {
	switch r.Status {
	case StatusSent:
		return true
	case StatusFailed:
		return r.RetryCount >= maxRetries
	default:
		return false
	}
}
