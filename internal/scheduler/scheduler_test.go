package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/resellhub/notify-engine/internal/catalog/domain"
	"github.com/resellhub/notify-engine/internal/clock"
	"github.com/resellhub/notify-engine/internal/config"
	"github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/internal/notification/repository"
	"github.com/resellhub/notify-engine/internal/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockServiceCatalog struct {
	snapshots []catalogdomain.ServiceSnapshot
	err       error
}

func (m *mockServiceCatalog) ListExpiringServices(context.Context) ([]catalogdomain.ServiceSnapshot, error) {
	return m.snapshots, m.err
}

type mockInvoiceCatalog struct {
	db   *gorm.DB
	repo domain.Repository

	sources []catalogdomain.InvoiceReminderSource
	err     error
}

// ListActiveRecurrenceConfigs refreshes each source's fired set from the
// store, the way the real adapter does.
func (m *mockInvoiceCatalog) ListActiveRecurrenceConfigs(ctx context.Context) ([]catalogdomain.InvoiceReminderSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]catalogdomain.InvoiceReminderSource, len(m.sources))
	for i, source := range m.sources {
		refs, err := m.repo.ListCycleRefs(ctx, m.db, domain.ServiceTypeInvoice, source.InvoiceID)
		if err != nil {
			return nil, err
		}
		source.FiredCycleRefs = refs
		out[i] = source
	}
	return out, nil
}

type schedulerFixture struct {
	sched    *Scheduler
	db       *gorm.DB
	repo     domain.Repository
	clock    *clock.FakeClock
	services *mockServiceCatalog
	invoices *mockInvoiceCatalog
}

func newSchedulerFixture(t *testing.T, start time.Time) *schedulerFixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&domain.Record{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(start)
	repo := repository.Provide()
	services := &mockServiceCatalog{}
	invoices := &mockInvoiceCatalog{db: gdb, repo: repo}

	cfg := config.Config{}
	cfg.Engine.ExpiryThresholds = []int{30, 15, 7}
	cfg.Engine.ExpiryGraceDays = 30
	cfg.Engine.ExpiryDeletionDays = 60

	sched, err := New(Params{
		DB:       gdb,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     repo,
		Services: services,
		Invoices: invoices,
		Config:   cfg,
	})
	require.NoError(t, err)

	return &schedulerFixture{
		sched:    sched,
		db:       gdb,
		repo:     repo,
		clock:    fakeClock,
		services: services,
		invoices: invoices,
	}
}

func (f *schedulerFixture) allRecords(t *testing.T) []*domain.Record {
	t.Helper()
	var records []*domain.Record
	require.NoError(t, f.db.Order("created_at asc, id asc").Find(&records).Error)
	return records
}

func TestScheduleDue_ExpiringServiceLifecycle(t *testing.T) {
	start := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	f := newSchedulerFixture(t, start)

	expiry := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	f.services.snapshots = []catalogdomain.ServiceSnapshot{{
		ServiceType:   domain.ServiceTypeDomain,
		ServiceID:     "dom-1",
		ServiceName:   "example.com",
		CustomerEmail: "owner@example.com",
		ExpiryDate:    expiry,
	}}

	created, err := f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	records := f.allRecords(t)
	require.Len(t, records, 1)
	assert.Equal(t, domain.TypeExpiringSoon1, records[0].Type)
	assert.Equal(t, "2024-04-10", records[0].CycleKey)
	assert.Equal(t, domain.StatusPending, records[0].Status)
	assert.Equal(t, "owner@example.com", records[0].RecipientEmail)
	assert.Contains(t, records[0].Subject, "example.com")
	assert.Nil(t, records[0].ScheduledAt)

	// Re-running the same pass creates nothing.
	created, err = f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// 15 days later the next stage fires as its own cycle record.
	f.clock.Advance(15 * 24 * time.Hour)
	created, err = f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	records = f.allRecords(t)
	require.Len(t, records, 2)
	assert.Equal(t, domain.TypeExpiringSoon2, records[1].Type)
	assert.Equal(t, "2024-04-10", records[1].CycleKey)

	// Past expiry the escalation record appears.
	f.clock.Advance(16 * 24 * time.Hour)
	created, err = f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	records = f.allRecords(t)
	require.Len(t, records, 3)
	assert.Equal(t, domain.TypeExpired, records[2].Type)
}

func TestScheduleDue_CancelledRecordIsNotRecreated(t *testing.T) {
	start := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	f := newSchedulerFixture(t, start)

	f.services.snapshots = []catalogdomain.ServiceSnapshot{{
		ServiceType:   domain.ServiceTypeVPS,
		ServiceID:     "vps-9",
		ServiceName:   "vps-9.resellhub.io",
		CustomerEmail: "owner@example.com",
		ExpiryDate:    time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
	}}

	created, err := f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, created)

	records := f.allRecords(t)
	require.Len(t, records, 1)
	require.NoError(t, f.db.Model(&domain.Record{}).
		Where("id = ?", records[0].ID).
		Update("status", domain.StatusCancelled).Error)

	created, err = f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestScheduleDue_InvoiceReminders(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newSchedulerFixture(t, start)

	dueDate := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	f.invoices.sources = []catalogdomain.InvoiceReminderSource{{
		InvoiceID:     "inv-42",
		InvoiceNumber: "INV-2024-0042",
		CustomerEmail: "billing@example.com",
		TotalAmount:   125000,
		Currency:      "USD",
		DueDate:       dueDate,
		Config: recurrence.Config{
			Frequency:        recurrence.FrequencyMonthly,
			SendTime:         "09:00",
			StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			DaysBeforeDue:    3,
			CCAccountingTeam: true,
			Enabled:          true,
		},
	}}

	// Three cadence occurrences have elapsed plus the due-soon trigger.
	created, err := f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	records := f.allRecords(t)
	require.Len(t, records, 4)

	byType := map[domain.Type]int{}
	for _, record := range records {
		byType[record.Type]++
		assert.Equal(t, domain.ServiceTypeInvoice, record.ServiceType)
		assert.Equal(t, "inv-42", record.ServiceID)
		assert.Equal(t, "true", record.Metadata["cc_accounting"])
		require.NotNil(t, record.ScheduledAt)
	}
	assert.Equal(t, 3, byType[domain.TypeInvoiceReminder])
	assert.Equal(t, 1, byType[domain.TypeInvoiceDueSoon])

	// The fired set read back from the store keeps the second pass empty.
	created, err = f.sched.ScheduleDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestScheduleDue_CatalogErrorAbortsPass(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newSchedulerFixture(t, start)

	f.services.err = errors.New("catalog unavailable")
	_, err := f.sched.ScheduleDue(context.Background())
	assert.Error(t, err)
}
