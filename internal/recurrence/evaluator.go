// Package recurrence maps an invoice reminder schedule to the occurrences
// due at evaluation time. The evaluator is a pure function of config, due
// date, clock and the set of cycles already notified.
package recurrence

import (
	"time"

	"github.com/resellhub/notify-engine/internal/notification/domain"
)

const cycleKeyLayout = "2006-01-02"

// maxOccurrences bounds the cadence walk so a config with a start date far
// in the past cannot spin the scheduler.
const maxOccurrences = 520

// Frequency is the reminder cadence.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom"
)

// Config is the per-invoice reminder schedule.
type Config struct {
	Frequency        Frequency
	IntervalDays     int    // meaningful only when Frequency is custom
	SendTime         string // local time of day, "15:04"
	StartDate        time.Time
	DaysBeforeDue    int
	CCAccountingTeam bool
	Enabled          bool
}

// Occurrence is one reminder due now.
type Occurrence struct {
	Type        domain.Type
	CycleKey    string
	ScheduledAt time.Time
}

// FiredSet tracks cycles already notified, per notification type. The two
// cycle-key families (occurrence dates vs due dates) stay separated so an
// occurrence landing on the due date cannot suppress the due-date reminder.
type FiredSet map[domain.Type]map[string]struct{}

func NewFiredSet(refs []domain.CycleRef) FiredSet {
	set := make(FiredSet)
	for _, ref := range refs {
		set.Add(ref.Type, ref.CycleKey)
	}
	return set
}

func (s FiredSet) Add(t domain.Type, key string) {
	if s[t] == nil {
		s[t] = make(map[string]struct{})
	}
	s[t][key] = struct{}{}
}

func (s FiredSet) Has(t domain.Type, key string) bool {
	_, ok := s[t][key]
	return ok
}

// Evaluate returns every reminder occurrence due at now that has not fired
// yet. Evaluating the same inputs twice is safe: already-fired cycles are
// skipped. A disabled config yields nothing; pending records created earlier
// are someone else's to cancel.
func Evaluate(cfg Config, dueDate, now time.Time, fired FiredSet) []Occurrence {
	if !cfg.Enabled {
		return nil
	}

	var due []Occurrence

	if !cfg.StartDate.IsZero() {
		occurrence := skipAhead(cfg.StartDate.UTC(), cfg, now)
		for i := 0; i < maxOccurrences; i++ {
			at := atSendTime(occurrence, cfg.SendTime)
			if at.After(now) {
				break
			}
			key := occurrence.Format(cycleKeyLayout)
			if !fired.Has(domain.TypeInvoiceReminder, key) {
				due = append(due, Occurrence{
					Type:        domain.TypeInvoiceReminder,
					CycleKey:    key,
					ScheduledAt: at,
				})
			}
			next, ok := nextOccurrence(occurrence, cfg)
			if !ok {
				break
			}
			occurrence = next
		}
	}

	// Due-date proximity reminder, independent of the cadence. Its cycle key
	// is the due date, so it cannot repeat unless the due date moves.
	if cfg.DaysBeforeDue > 0 && !dueDate.IsZero() {
		trigger := atSendTime(dueDate.UTC().AddDate(0, 0, -cfg.DaysBeforeDue), cfg.SendTime)
		key := dueDate.UTC().Format(cycleKeyLayout)
		if !trigger.After(now) && !fired.Has(domain.TypeInvoiceDueSoon, key) {
			due = append(due, Occurrence{
				Type:        domain.TypeInvoiceDueSoon,
				CycleKey:    key,
				ScheduledAt: trigger,
			})
		}
	}

	return due
}

// skipAhead fast-forwards a fixed-day cadence whose start date lies more
// than maxOccurrences periods in the past, so the bounded walk always
// reaches the occurrences near now. Catch-up older than the window is
// dropped; the current cycle is what must keep firing. Month-based cadences
// keep the full walk, where the bound already covers decades.
func skipAhead(start time.Time, cfg Config, now time.Time) time.Time {
	var step int
	switch cfg.Frequency {
	case FrequencyWeekly:
		step = 7
	case FrequencyBiweekly:
		step = 14
	case FrequencyCustom:
		step = cfg.IntervalDays
	default:
		return start
	}
	if step <= 0 || !now.After(start) {
		return start
	}
	periods := int(now.Sub(start)/(24*time.Hour))/step + 1
	if periods <= maxOccurrences {
		return start
	}
	return start.AddDate(0, 0, (periods-maxOccurrences)*step)
}

func nextOccurrence(current time.Time, cfg Config) (time.Time, bool) {
	switch cfg.Frequency {
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7), true
	case FrequencyBiweekly:
		return current.AddDate(0, 0, 14), true
	case FrequencyMonthly:
		return current.AddDate(0, 1, 0), true
	case FrequencyQuarterly:
		return current.AddDate(0, 3, 0), true
	case FrequencyYearly:
		return current.AddDate(1, 0, 0), true
	case FrequencyCustom:
		if cfg.IntervalDays <= 0 {
			return time.Time{}, false
		}
		return current.AddDate(0, 0, cfg.IntervalDays), true
	default:
		return time.Time{}, false
	}
}

// atSendTime pins a calendar date to the configured time of day, UTC.
func atSendTime(date time.Time, sendTime string) time.Time {
	date = date.UTC()
	parsed, err := time.Parse("15:04", sendTime)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}
