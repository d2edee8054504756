/**
 * @description
 * Urgency classification for renewals. Classify is a pure function over a
 * renewal's due date and payment flag; the dashboard and list views apply it
 * per renewal at read time.
 */

package domain

import "time"

// StatusTier is the urgency bucket assigned to a renewal.
type StatusTier string

const (
	TierPaid       StatusTier = "paid"
	TierOverdue    StatusTier = "overdue"
	TierDueSoon    StatusTier = "due_soon"    // due within 7 days
	TierDueWarning StatusTier = "due_warning" // due within 15 days
	TierUpcoming   StatusTier = "upcoming"
)

// Status pairs the display label with the urgency tier.
type Status struct {
	Label         string
	Tier          StatusTier
	DaysRemaining int
}

// Classify maps a renewal's due date and paid flag to a status.
//
// Precedence: a paid renewal is Paid regardless of its date. Otherwise a due
// date before today is Overdue, then the remaining tiers follow from the number
// of days left (<=7 DueSoon, <=15 DueWarning, else Upcoming). Comparison is at
// calendar-day granularity so a renewal does not flip tiers within one day.
func Classify(endDate time.Time, isPaid bool, now time.Time) Status {
	if isPaid {
		return Status{Label: "Paid", Tier: TierPaid, DaysRemaining: daysUntil(endDate, now)}
	}

	days := daysUntil(endDate, now)
	switch {
	case days < 0:
		return Status{Label: "Overdue", Tier: TierOverdue, DaysRemaining: days}
	case days <= 7:
		return Status{Label: "Due Soon", Tier: TierDueSoon, DaysRemaining: days}
	case days <= 15:
		return Status{Label: "Due Warning", Tier: TierDueWarning, DaysRemaining: days}
	default:
		return Status{Label: "Upcoming", Tier: TierUpcoming, DaysRemaining: days}
	}
}

// daysUntil returns the whole calendar days from now to endDate, using each
// time's own calendar date. Today is 0, tomorrow 1, yesterday -1.
func daysUntil(endDate, now time.Time) int {
	end := truncateToDay(endDate)
	today := truncateToDay(now)
	return int(end.Sub(today).Hours() / 24)
}

// truncateToDay projects a time onto its calendar date at UTC midnight. Pinning
// to UTC keeps the difference an exact multiple of 24h even when the two inputs
// carry different offsets, which is routine for client-supplied due dates.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
