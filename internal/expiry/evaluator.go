// Package expiry maps a service's expiry date and the current time to at
// most one due notification kind. The evaluator is a pure function; all
// boundaries come from configuration.
package expiry

import (
	"sort"
	"time"

	"github.com/resellhub/notify-engine/internal/notification/domain"
)

const cycleKeyLayout = "2006-01-02"

// Policy holds the configured days-remaining boundaries. Thresholds are
// staged reminders before expiry, farthest first; grace and deletion windows
// stage the post-expiry escalation.
type Policy struct {
	Thresholds         []int
	GracePeriodDays    int
	DeletionWindowDays int
}

func DefaultPolicy() Policy {
	return Policy{
		Thresholds:         []int{30, 15, 7},
		GracePeriodDays:    30,
		DeletionWindowDays: 60,
	}
}

// Normalize sorts thresholds farthest-first and truncates to the three
// staged kinds the notification model knows about.
func (p Policy) Normalize() Policy {
	defaults := DefaultPolicy()
	if len(p.Thresholds) == 0 {
		p.Thresholds = defaults.Thresholds
	}
	thresholds := append([]int(nil), p.Thresholds...)
	sort.Sort(sort.Reverse(sort.IntSlice(thresholds)))
	if len(thresholds) > 3 {
		thresholds = thresholds[:3]
	}
	p.Thresholds = thresholds
	if p.GracePeriodDays <= 0 {
		p.GracePeriodDays = defaults.GracePeriodDays
	}
	if p.DeletionWindowDays <= p.GracePeriodDays {
		p.DeletionWindowDays = defaults.DeletionWindowDays
		if p.DeletionWindowDays <= p.GracePeriodDays {
			p.DeletionWindowDays = p.GracePeriodDays * 2
		}
	}
	return p
}

var stagedKinds = []domain.Type{
	domain.TypeExpiringSoon1,
	domain.TypeExpiringSoon2,
	domain.TypeExpiringSoon3,
}

// Result is the single due notification kind, if any.
type Result struct {
	Type          domain.Type
	CycleKey      string
	DaysRemaining int
}

// Evaluate returns at most one due kind for the given expiry date. The cycle
// key is the expiry date itself, so renewing a service opens a fresh cycle
// and earlier dedup keys stop mattering. Skipped threshold windows are never
// backfilled.
func Evaluate(policy Policy, expiryDate, now time.Time) (Result, bool) {
	policy = policy.Normalize()
	days := daysRemaining(expiryDate, now)
	cycleKey := expiryDate.UTC().Format(cycleKeyLayout)

	switch {
	case days <= -policy.DeletionWindowDays:
		return Result{Type: domain.TypeDeleted, CycleKey: cycleKey, DaysRemaining: days}, true
	case days <= -policy.GracePeriodDays:
		return Result{Type: domain.TypeDeletionWarning, CycleKey: cycleKey, DaysRemaining: days}, true
	case days <= 0:
		return Result{Type: domain.TypeExpired, CycleKey: cycleKey, DaysRemaining: days}, true
	}

	// Staged pre-expiry reminders: each threshold owns the band down to the
	// next one, so a scan landing anywhere inside the band still fires the
	// stage while the cycle key keeps it to once per expiry date.
	for i, threshold := range policy.Thresholds {
		if days > threshold {
			return Result{}, false
		}
		lower := 0
		if i+1 < len(policy.Thresholds) {
			lower = policy.Thresholds[i+1]
		}
		if days > lower {
			return Result{Type: stagedKinds[i], CycleKey: cycleKey, DaysRemaining: days}, true
		}
	}
	return Result{}, false
}

// daysRemaining is the whole-day floor of expiryDate - now.
func daysRemaining(expiryDate, now time.Time) int {
	diff := expiryDate.Sub(now)
	days := int(diff / (24 * time.Hour))
	if diff < 0 && diff%(24*time.Hour) != 0 {
		days--
	}
	return days
}
