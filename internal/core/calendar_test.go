package core

import "testing"

func TestWorkingDays(t *testing.T) {
	tests := []struct {
		name        string
		month, year int
		want        int
	}{
		// June 2024 has 30 days with Sundays on 2, 9, 16, 23 and 30.
		{"june 2024", 6, 2024, 25},
		// February 2024 (leap) has 29 days with Sundays on 4, 11, 18, 25.
		{"february 2024", 2, 2024, 25},
		// December 2024 has 31 days with five Sundays.
		{"december 2024", 12, 2024, 26},
		{"month zero", 0, 2024, 0},
		{"month thirteen", 13, 2024, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkingDays(tt.month, tt.year); got != tt.want {
				t.Errorf("WorkingDays(%d, %d) = %d, want %d", tt.month, tt.year, got, tt.want)
			}
		})
	}
}

func TestDailyTarget(t *testing.T) {
	// 270000 over June 2024's 25 working days.
	got := DailyTarget(Money{Cents: 270000}, 6, 2024)
	want := 270000.0 / 25.0
	if diff := got - want; diff > 0.01 || diff < -0.01 {
		t.Fatalf("DailyTarget = %f, want %f", got, want)
	}

	if got := DailyTarget(Money{Cents: 100}, 0, 2024); got != 0 {
		t.Fatalf("DailyTarget with no working days = %f, want 0", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := DaysInMonth(2, 2024); got != 29 {
		t.Errorf("DaysInMonth(2, 2024) = %d, want 29", got)
	}
	if got := DaysInMonth(2, 2023); got != 28 {
		t.Errorf("DaysInMonth(2, 2023) = %d, want 28", got)
	}
	if got := DaysInMonth(6, 2024); got != 30 {
		t.Errorf("DaysInMonth(6, 2024) = %d, want 30", got)
	}
}
