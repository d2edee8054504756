package app

import (
	"testing"
	"time"

	"github.com/Shreyask21-dev/recurr/internal/domain"
)

var dashNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func renewalAt(endDate, createdAt time.Time, amount float64, paid bool) domain.Renewal {
	return domain.Renewal{
		ClientID:  1,
		ServiceID: 1,
		StartDate: endDate.AddDate(0, -12, 0),
		EndDate:   endDate,
		Amount:    amount,
		IsPaid:    paid,
		CreatedAt: createdAt,
	}
}

func TestSummarizeRevenue(t *testing.T) {
	renewals := []domain.Renewal{
		// Paid this month: counts toward MTD and YTD.
		renewalAt(dashNow.AddDate(0, 1, 0), time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), 100, true),
		// Paid in March: YTD only.
		renewalAt(dashNow.AddDate(0, 2, 0), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 50, true),
		// Paid last year with a due date before Jan 1: neither MTD nor YTD.
		renewalAt(time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), 999, true),
		// Unpaid, due in 3 months: projected only.
		renewalAt(dashNow.AddDate(0, 3, 0), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 70, false),
		// Unpaid, due in 14 months: outside the projection window.
		renewalAt(dashNow.AddDate(0, 14, 0), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 888, false),
	}

	summary := summarizeRevenue(renewals, dashNow)

	if summary.MTD != 100 {
		t.Fatalf("expected MTD 100, got %.2f", summary.MTD)
	}
	if summary.YTD != 150 {
		t.Fatalf("expected YTD 150, got %.2f", summary.YTD)
	}
	// Projected includes paid and unpaid renewals due within 12 months.
	if summary.Projected != 220 {
		t.Fatalf("expected projected 220, got %.2f", summary.Projected)
	}
}

func TestFilterUpcoming_WindowAndPaidExclusion(t *testing.T) {
	renewals := []domain.Renewal{
		renewalAt(dashNow.AddDate(0, 0, -2), dashNow, 10, false), // overdue, outside window
		renewalAt(dashNow, dashNow, 20, false),                   // due today
		renewalAt(dashNow.AddDate(0, 0, 30), dashNow, 30, false), // boundary day
		renewalAt(dashNow.AddDate(0, 0, 31), dashNow, 40, false), // past boundary
		renewalAt(dashNow.AddDate(0, 0, 5), dashNow, 50, true),   // paid, excluded
	}

	upcoming := filterUpcoming(renewals, dashNow, 30)
	if len(upcoming) != 2 {
		t.Fatalf("expected 2 upcoming renewals, got %d", len(upcoming))
	}
	if upcoming[0].Amount != 20 || upcoming[1].Amount != 30 {
		t.Fatalf("unexpected upcoming selection: %+v", upcoming)
	}

	if got := countPending(renewals, dashNow, 30); got != 2 {
		t.Fatalf("expected 2 pending renewals, got %d", got)
	}
}

func TestMonthlyRevenue_BucketsAndZeroFill(t *testing.T) {
	renewals := []domain.Renewal{
		renewalAt(dashNow, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), 100, true),
		renewalAt(dashNow, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), 25, true),
		renewalAt(dashNow, time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC), 40, true),
		// Unpaid entries never contribute.
		renewalAt(dashNow, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), 77, false),
		// Older than the trailing window.
		renewalAt(dashNow, time.Date(2023, 12, 9, 0, 0, 0, 0, time.UTC), 500, true),
	}

	series := monthlyRevenue(renewals, dashNow, 6)
	if len(series) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(series))
	}

	want := []domain.MonthlyRevenue{
		{Month: "Jan 2024", Amount: 0},
		{Month: "Feb 2024", Amount: 0},
		{Month: "Mar 2024", Amount: 0},
		{Month: "Apr 2024", Amount: 40},
		{Month: "May 2024", Amount: 0},
		{Month: "Jun 2024", Amount: 125},
	}
	for i, bucket := range series {
		if bucket != want[i] {
			t.Fatalf("bucket %d: expected %+v, got %+v", i, want[i], bucket)
		}
	}
}

func TestMonthlyRevenue_NoMonths(t *testing.T) {
	if got := monthlyRevenue(nil, dashNow, 0); len(got) != 0 {
		t.Fatalf("expected empty series, got %+v", got)
	}
}
