package workflow

import (
	"testing"
	"time"

	"github.com/mmcattleworks/herdbooks_backend/utils"
)

func TestWholeCalendarMonths(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same day", date(2024, time.January, 15), date(2024, time.January, 15), 0},
		{"day before anniversary", date(2024, time.January, 15), date(2024, time.February, 14), 0},
		{"on anniversary", date(2024, time.January, 15), date(2024, time.February, 15), 1},
		{"one year", date(2024, time.January, 15), date(2025, time.January, 15), 12},
		{"to before from", date(2024, time.March, 1), date(2024, time.January, 1), 0},
		{"year boundary", date(2023, time.November, 30), date(2024, time.January, 30), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WholeCalendarMonths(tc.from, tc.to); got != tc.want {
				t.Fatalf("WholeCalendarMonths(%s, %s) = %d, want %d",
					tc.from.Format("2006-01-02"), tc.to.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestComputeDepreciation_StraightLine(t *testing.T) {
	// $2500 cow, $250 salvage, 60-month life, 12 elapsed months.
	result, err := ComputeDepreciation(DepreciationInput{
		PurchasePrice:    dec("2500"),
		SalvageValue:     dec("250"),
		InServiceDate:    date(2023, time.January, 1),
		AsOfDate:         date(2024, time.January, 1),
		UsefulLifeMonths: 60,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.MonthlyDepreciation.Equal(dec("37.5")) {
		t.Fatalf("monthly = %s, want 37.50", result.MonthlyDepreciation)
	}
	if result.MonthsElapsed != 12 {
		t.Fatalf("months elapsed = %d, want 12", result.MonthsElapsed)
	}
	if !result.AccumulatedDepreciation.Equal(dec("450")) {
		t.Fatalf("accumulated = %s, want 450.00", result.AccumulatedDepreciation)
	}
	if !result.BookValue.Equal(dec("2050")) {
		t.Fatalf("book value = %s, want 2050.00", result.BookValue)
	}
}

func TestComputeDepreciation_CapsAtSalvage(t *testing.T) {
	// 80 elapsed months on a 60-month life: accumulated stops at the
	// depreciable base and book value rests at salvage.
	result, err := ComputeDepreciation(DepreciationInput{
		PurchasePrice:    dec("2500"),
		SalvageValue:     dec("250"),
		InServiceDate:    date(2017, time.May, 1),
		AsOfDate:         date(2024, time.January, 1),
		UsefulLifeMonths: 60,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AccumulatedDepreciation.Equal(dec("2250")) {
		t.Fatalf("accumulated = %s, want 2250.00", result.AccumulatedDepreciation)
	}
	if !result.BookValue.Equal(dec("250")) {
		t.Fatalf("book value = %s, want salvage 250.00", result.BookValue)
	}
}

func TestComputeDepreciation_AccumulatedIsMonotonic(t *testing.T) {
	inService := date(2023, time.March, 10)
	previous := dec("0")
	for i := 0; i <= 70; i++ {
		result, err := ComputeDepreciation(DepreciationInput{
			PurchasePrice: dec("1800"),
			SalvageValue:  dec("300"),
			InServiceDate: inService,
			AsOfDate:      inService.AddDate(0, i, 0),
		})
		if err != nil {
			t.Fatalf("month %d: unexpected error: %v", i, err)
		}
		if result.AccumulatedDepreciation.LessThan(previous) {
			t.Fatalf("month %d: accumulated %s dropped below %s", i, result.AccumulatedDepreciation, previous)
		}
		if result.BookValue.LessThan(dec("300")) {
			t.Fatalf("month %d: book value %s below salvage", i, result.BookValue)
		}
		previous = result.AccumulatedDepreciation
	}
}

func TestComputeDepreciation_DefaultsLifeTo60Months(t *testing.T) {
	result, err := ComputeDepreciation(DepreciationInput{
		PurchasePrice: dec("1200"),
		SalvageValue:  dec("0"),
		InServiceDate: date(2024, time.January, 1),
		AsOfDate:      date(2024, time.February, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.MonthlyDepreciation.Equal(dec("20")) {
		t.Fatalf("monthly = %s, want 20.00 (1200/60)", result.MonthlyDepreciation)
	}
}

func TestComputeDepreciation_RejectsBadPricing(t *testing.T) {
	cases := []struct {
		name  string
		price string
		salv  string
	}{
		{"zero price", "0", "0"},
		{"negative price", "-100", "0"},
		{"negative salvage", "1000", "-1"},
		{"salvage exceeds price", "1000", "1001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeDepreciation(DepreciationInput{
				PurchasePrice: dec(tc.price),
				SalvageValue:  dec(tc.salv),
				InServiceDate: date(2024, time.January, 1),
				AsOfDate:      date(2024, time.June, 1),
			})
			if !utils.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
