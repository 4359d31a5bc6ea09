package globaltime

import (
	"testing"
	"time"
)

func TestMockTime(t *testing.T) {
	fixed := time.Date(2026, 10, 17, 15, 30, 0, 0, time.FixedZone("x", 2*3600))
	SetMockTime(fixed)
	defer ResetTime()

	if !Now().Equal(fixed) {
		t.Fatalf("expected mocked now, got %s", Now())
	}
	if UTC().Location() != time.UTC {
		t.Fatalf("expected UTC location")
	}
	if got := DayStart(); !got.Equal(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start: %s", got)
	}
}

func TestDayStartOf(t *testing.T) {
	t.Parallel()

	late := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("x", -3*3600))
	if got := DayStartOf(late); !got.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start: %s", got)
	}
}
