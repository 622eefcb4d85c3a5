package repository

import (
	"context"
	"time"

	"github.com/resellhub/notify-engine/internal/catalog/domain"
	notificationdomain "github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/internal/recurrence"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Catalog reads the dashboard's services and invoices tables directly. Hosts
// embedding the engine elsewhere supply their own ServiceCatalog and
// InvoiceCatalog implementations instead.
type Catalog struct {
	db               *gorm.DB
	notificationRepo notificationdomain.Repository
}

type Params struct {
	fx.In

	DB               *gorm.DB
	NotificationRepo notificationdomain.Repository
}

func Provide(p Params) *Catalog {
	return &Catalog{db: p.DB, notificationRepo: p.NotificationRepo}
}

func ProvideServiceCatalog(c *Catalog) domain.ServiceCatalog { return c }

func ProvideInvoiceCatalog(c *Catalog) domain.InvoiceCatalog { return c }

type serviceRow struct {
	ID            string
	ServiceType   notificationdomain.ServiceType
	Name          string
	CustomerEmail string
	ExpiryDate    time.Time
}

func (c *Catalog) ListExpiringServices(ctx context.Context) ([]domain.ServiceSnapshot, error) {
	var rows []serviceRow
	err := c.db.WithContext(ctx).Raw(
		`SELECT id, service_type, name, customer_email, expiry_date
		 FROM services
		 WHERE status = 'ACTIVE' AND expiry_date IS NOT NULL`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.ServiceSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, domain.ServiceSnapshot{
			ServiceType:   row.ServiceType,
			ServiceID:     row.ID,
			ServiceName:   row.Name,
			CustomerEmail: row.CustomerEmail,
			ExpiryDate:    row.ExpiryDate,
		})
	}
	return snapshots, nil
}

type invoiceRow struct {
	ID                    string
	InvoiceNumber         string
	CustomerEmail         string
	TotalAmount           int64
	Currency              string
	DueDate               time.Time
	ReminderFrequency     string
	ReminderIntervalDays  int
	ReminderSendTime      string
	ReminderStartDate     time.Time
	ReminderDaysBeforeDue int
	ReminderCcAccounting  bool
}

func (c *Catalog) ListActiveRecurrenceConfigs(ctx context.Context) ([]domain.InvoiceReminderSource, error) {
	var rows []invoiceRow
	err := c.db.WithContext(ctx).Raw(
		`SELECT id, invoice_number, customer_email, total_amount, currency, due_date,
		        reminder_frequency, reminder_interval_days, reminder_send_time,
		        reminder_start_date, reminder_days_before_due, reminder_cc_accounting
		 FROM invoices
		 WHERE status IN ('OPEN', 'OVERDUE') AND reminder_enabled`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sources := make([]domain.InvoiceReminderSource, 0, len(rows))
	for _, row := range rows {
		refs, err := c.notificationRepo.ListCycleRefs(ctx, c.db, notificationdomain.ServiceTypeInvoice, row.ID)
		if err != nil {
			return nil, err
		}
		sources = append(sources, domain.InvoiceReminderSource{
			InvoiceID:     row.ID,
			InvoiceNumber: row.InvoiceNumber,
			CustomerEmail: row.CustomerEmail,
			TotalAmount:   row.TotalAmount,
			Currency:      row.Currency,
			DueDate:       row.DueDate,
			Config: recurrence.Config{
				Frequency:        recurrence.Frequency(row.ReminderFrequency),
				IntervalDays:     row.ReminderIntervalDays,
				SendTime:         row.ReminderSendTime,
				StartDate:        row.ReminderStartDate,
				DaysBeforeDue:    row.ReminderDaysBeforeDue,
				CCAccountingTeam: row.ReminderCcAccounting,
				Enabled:          true,
			},
			FiredCycleRefs: refs,
		})
	}
	return sources, nil
}
