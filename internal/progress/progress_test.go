package progress

import (
	"testing"
	"time"
)

func TestObserveSuppressesWithinInterval(t *testing.T) {
	start := time.Unix(0, 0)
	th := New(start)

	_, ok := th.Observe(10, 100, start)
	if !ok {
		t.Fatal("first observation should always emit")
	}

	_, ok = th.Observe(11, 100, start.Add(100*time.Millisecond))
	if ok {
		t.Fatal("observation within MinInterval should be suppressed even when the percent changed")
	}
}

func TestObserveEmitsOnPercentChange(t *testing.T) {
	start := time.Unix(0, 0)
	th := New(start)

	th.Observe(1, 100, start)
	report, ok := th.Observe(50, 100, start.Add(600*time.Millisecond))
	if !ok {
		t.Fatal("observation with changed percent should emit once MinInterval has elapsed")
	}
	if report.Percent != 50 {
		t.Fatalf("Percent = %d, want 50", report.Percent)
	}
}

func TestObserveEmitsAfterInterval(t *testing.T) {
	start := time.Unix(0, 0)
	th := New(start)

	th.Observe(1, 100, start)
	_, ok := th.Observe(2, 100, start.Add(600*time.Millisecond))
	if !ok {
		t.Fatal("observation after MinInterval with a changed percent should emit")
	}
}

func TestFormatETABuckets(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "2m"},
		{2 * time.Hour, "2h"},
	}
	for _, c := range cases {
		if got := formatETA(c.d); got != c.want {
			t.Errorf("formatETA(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
