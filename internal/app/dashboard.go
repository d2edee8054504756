/**
 * @description
 * Pure aggregation functions behind the dashboard snapshot. Keeping these free
 * of storage access means both backends produce identical numbers and the
 * arithmetic is testable with plain fixtures.
 *
 * Revenue definitions:
 * - MTD: paid renewals recorded since the first of the current month.
 * - YTD: paid renewals whose due date falls on or after January 1st.
 * - Projected: every renewal, paid or not, due within the next 12 months.
 */

package app

import (
	"time"

	"github.com/Shreyask21-dev/recurr/internal/domain"
)

// filterUpcoming returns the unpaid renewals due within windowDays from today,
// inclusive on both ends. Input order (due date ascending) is preserved.
func filterUpcoming(renewals []domain.Renewal, now time.Time, windowDays int) []domain.Renewal {
	today := startOfDay(now)
	cutoff := today.AddDate(0, 0, windowDays)

	out := make([]domain.Renewal, 0)
	for _, r := range renewals {
		if r.IsPaid {
			continue
		}
		due := startOfDay(r.EndDate)
		if due.Before(today) || due.After(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// countPending counts the unpaid renewals due within windowDays from today.
func countPending(renewals []domain.Renewal, now time.Time, windowDays int) int {
	return len(filterUpcoming(renewals, now, windowDays))
}

// summarizeRevenue computes the MTD/YTD/projected rollups in one pass.
func summarizeRevenue(renewals []domain.Renewal, now time.Time) domain.RevenueSummary {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	projectionEnd := now.AddDate(1, 0, 0)

	var summary domain.RevenueSummary
	for _, r := range renewals {
		if r.IsPaid {
			if !r.CreatedAt.Before(monthStart) && !r.CreatedAt.After(now) {
				summary.MTD += r.Amount
			}
			if !r.EndDate.Before(yearStart) {
				summary.YTD += r.Amount
			}
		}
		if r.EndDate.After(now) && !r.EndDate.After(projectionEnd) {
			summary.Projected += r.Amount
		}
	}
	return summary
}

// monthlyRevenue buckets paid renewals by the month they were recorded into the
// trailing `months` buckets, oldest first, with empty months zero-filled.
func monthlyRevenue(renewals []domain.Renewal, now time.Time, months int) []domain.MonthlyRevenue {
	if months <= 0 {
		return []domain.MonthlyRevenue{}
	}

	type bucket struct {
		label  string
		amount float64
	}
	buckets := make([]bucket, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		m := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, i-months+1, 0)
		label := m.Format("Jan 2006")
		buckets[i] = bucket{label: label}
		index[label] = i
	}

	for _, r := range renewals {
		if !r.IsPaid {
			continue
		}
		if i, ok := index[r.CreatedAt.Format("Jan 2006")]; ok {
			buckets[i].amount += r.Amount
		}
	}

	out := make([]domain.MonthlyRevenue, months)
	for i, b := range buckets {
		out[i] = domain.MonthlyRevenue{Month: b.label, Amount: b.amount}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
