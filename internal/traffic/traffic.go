package traffic

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// maxAge bounds how long outcomes are retained; windows longer than this undercount.
const maxAge = 10 * time.Minute

var defaultTracker = NewTracker(clockwork.NewRealClock())

// RecordAPIRequest records a request admitted to the rate-limited /api path.
func RecordAPIRequest() {
	defaultTracker.RecordAPIRequest()
}

// RecordDenied records a rate-limit denial (429).
func RecordDenied() {
	defaultTracker.RecordDenied()
}

// RecordUpstreamSuccess records a gateway call that produced a usable result.
func RecordUpstreamSuccess() {
	defaultTracker.RecordUpstreamSuccess()
}

// RecordUpstreamFailure records a gateway call that collapsed to the failure result.
func RecordUpstreamFailure() {
	defaultTracker.RecordUpstreamFailure()
}

// RequestCount returns admitted plus denied /api requests within the window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// UpstreamErrorRate returns (failures, total) gateway outcomes within the window.
func UpstreamErrorRate(window time.Duration) (failures, total int) {
	return defaultTracker.UpstreamErrorRate(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker maintains sliding windows of timestamps for /api admission and gateway outcomes.
// Health checks read overload from the /api windows and degradation from the gateway windows.
type Tracker struct {
	mu    sync.Mutex
	clock clockwork.Clock

	requests  []time.Time
	denials   []time.Time
	successes []time.Time
	failures  []time.Time
}

// NewTracker returns a Tracker reading time from clock.
func NewTracker(clock clockwork.Clock) *Tracker {
	return &Tracker{clock: clock}
}

func (t *Tracker) RecordAPIRequest()      { t.record(&t.requests) }
func (t *Tracker) RecordDenied()          { t.record(&t.denials) }
func (t *Tracker) RecordUpstreamSuccess() { t.record(&t.successes) }
func (t *Tracker) RecordUpstreamFailure() { t.record(&t.failures) }

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// RequestCount returns admitted plus denied requests within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	return countSince(t.requests, cutoff) + countSince(t.denials, cutoff)
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.denials, t.clock.Now().Add(-window))
}

// UpstreamErrorRate returns (failures, successes+failures) within the window.
func (t *Tracker) UpstreamErrorRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock.Now().Add(-window)
	failures = countSince(t.failures, cutoff)
	return failures, failures + countSince(t.successes, cutoff)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests, t.denials, t.successes, t.failures = nil, nil, nil, nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-maxAge)
	for _, slice := range []*[]time.Time{&t.requests, &t.denials, &t.successes, &t.failures} {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
}
