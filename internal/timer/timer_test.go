package timer_test

import (
	"testing"
	"time"

	"github.com/khangtgr/assessly/internal/timer"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRemaining(t *testing.T) {
	cases := []struct {
		name     string
		duration int
		now      time.Time
		want     int
	}{
		{"at_start", 30, start, 1800},
		{"halfway", 30, start.Add(15 * time.Minute), 900},
		{"exactly_expired", 30, start.Add(30 * time.Minute), 0},
		{"past_expiry", 30, start.Add(31 * time.Minute), 0},
		{"far_past_expiry", 30, start.Add(24 * time.Hour), 0},
		{"clock_behind_start", 30, start.Add(-2 * time.Minute), 1920},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := timer.Remaining(tc.duration, start, tc.now); got != tc.want {
				t.Fatalf("Remaining = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRemainingIsPure(t *testing.T) {
	now := start.Add(7 * time.Minute)
	a := timer.Remaining(45, start, now)
	b := timer.Remaining(45, start, now)
	if a != b {
		t.Fatalf("same inputs gave %d then %d", a, b)
	}
}

func TestRemainingNonIncreasing(t *testing.T) {
	prev := timer.Remaining(30, start, start)
	for i := 1; i <= 40; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		cur := timer.Remaining(30, start, now)
		if cur > prev {
			t.Fatalf("remaining increased from %d to %d at minute %d", prev, cur, i)
		}
		if cur < 0 {
			t.Fatalf("remaining went negative: %d", cur)
		}
		prev = cur
	}
}

func TestElapsedClampedToDuration(t *testing.T) {
	if got := timer.Elapsed(30, start, start.Add(2*time.Hour)); got != 1800 {
		t.Fatalf("Elapsed past expiry = %d, want 1800", got)
	}
	if got := timer.Elapsed(30, start, start.Add(-time.Minute)); got != 0 {
		t.Fatalf("Elapsed before start = %d, want 0", got)
	}
}

func TestExpired(t *testing.T) {
	if timer.Expired(30, start, start.Add(29*time.Minute)) {
		t.Fatal("should not be expired with a minute left")
	}
	if !timer.Expired(30, start, start.Add(31*time.Minute)) {
		t.Fatal("should be expired past the duration")
	}
}
