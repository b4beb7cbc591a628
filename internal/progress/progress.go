// Package progress implements the rate-limited progress reporting throttle
// shared by the send and receive pipelines. It deliberately reports coarsely
// so a busy UI never stalls the transfer loop.
package progress

import (
	"fmt"
	"time"
)

// MinInterval is the minimum time between two emitted reports.
const MinInterval = 500 * time.Millisecond

// Report is a single throttled progress observation.
type Report struct {
	Percent int
	Speed   float64 // bytes per second
	ETA     time.Duration
	Text    string
}

// Throttle converts a stream of (transferred, total, now) observations into
// rate-limited reports, suppressing one if less than MinInterval has
// elapsed since the last emission or the integer percent has not changed.
// The first observation is always emitted.
type Throttle struct {
	start        time.Time
	lastEmit     time.Time
	lastPercent  int
	hasEmitted   bool
}

// New creates a throttle anchored at start, the moment the transfer began.
func New(start time.Time) *Throttle {
	return &Throttle{start: start}
}

// Observe feeds a new (transferred, total) pair at time now. It returns the
// report and true if one should be surfaced, or the zero Report and false if
// this observation was suppressed.
func (t *Throttle) Observe(transferred, total uint64, now time.Time) (Report, bool) {
	percent := percentOf(transferred, total)

	if t.hasEmitted && (now.Sub(t.lastEmit) < MinInterval || percent == t.lastPercent) {
		return Report{}, false
	}

	elapsed := now.Sub(t.start).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(transferred) / elapsed
	}

	var eta time.Duration
	if speed > 0 && total > transferred {
		eta = time.Duration(float64(total-transferred)/speed) * time.Second
	}

	t.lastEmit = now
	t.lastPercent = percent
	t.hasEmitted = true

	report := Report{
		Percent: percent,
		Speed:   speed,
		ETA:     eta,
		Text:    Format(percent, speed, eta),
	}
	return report, true
}

func percentOf(transferred, total uint64) int {
	if total == 0 {
		return 100
	}
	return int(float64(transferred) / float64(total) * 100.0)
}

// Format renders "{p}% • {speed_mibps:.2} MB/s • ETA {eta}".
func Format(percent int, speed float64, eta time.Duration) string {
	return fmt.Sprintf("%d%% • %.2f MB/s • ETA %s", percent, speed/(1024*1024), formatETA(eta))
}

// formatETA renders "Ns" for <60s, "Nm" for <3600s, else "Nh", all rounded.
func formatETA(eta time.Duration) string {
	seconds := eta.Round(time.Second).Seconds()
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.0fm", seconds/60)
	default:
		return fmt.Sprintf("%.0fh", seconds/3600)
	}
}
