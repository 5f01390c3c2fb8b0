package service

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2025, time.March, 14, 23, 59, 58, 123, time.UTC)
	if got := TruncateToDay(in); !got.Equal(day(2025, time.March, 14)) {
		t.Errorf("TruncateToDay = %v", got)
	}

	// Non-UTC inputs are converted before truncation.
	loc := time.FixedZone("UTC+5", 5*60*60)
	in = time.Date(2025, time.March, 15, 2, 0, 0, 0, loc) // 21:00 UTC on the 14th
	if got := TruncateToDay(in); !got.Equal(day(2025, time.March, 14)) {
		t.Errorf("TruncateToDay across zones = %v", got)
	}
}

func TestNextStreak(t *testing.T) {
	today := day(2025, time.March, 15)
	yesterday := day(2025, time.March, 14)
	lastWeek := day(2025, time.March, 8)

	tests := []struct {
		name       string
		lastActive *time.Time
		streak     int
		want       int
	}{
		{"first ever accepted submission", nil, 0, 1},
		{"active yesterday extends", &yesterday, 4, 5},
		{"gap resets", &lastWeek, 10, 1},
		{"second accepted today resets", &today, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStreak(tt.lastActive, tt.streak, today); got != tt.want {
				t.Errorf("NextStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextStreakIgnoresTimeOfDay(t *testing.T) {
	today := day(2025, time.March, 15)
	// last_active carrying a time-of-day component still counts as yesterday.
	lastActive := time.Date(2025, time.March, 14, 18, 30, 0, 0, time.UTC)
	if got := NextStreak(&lastActive, 2, today); got != 3 {
		t.Errorf("NextStreak = %d, want 3", got)
	}
}
