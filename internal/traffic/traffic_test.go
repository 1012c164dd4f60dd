package traffic

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// TestTracker_RequestCount verifies admitted and denied requests both count toward load.
func TestTracker_RequestCount(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordAPIRequest()
	tr.RecordAPIRequest()
	tr.RecordDenied()

	if n := tr.RequestCount(time.Minute); n != 3 {
		t.Errorf("RequestCount() = %d, want 3", n)
	}
	if n := tr.DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}
}

// TestTracker_UpstreamErrorRate verifies gateway outcomes are counted separately from /api load.
func TestTracker_UpstreamErrorRate(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordUpstreamSuccess()
	tr.RecordUpstreamSuccess()
	tr.RecordUpstreamFailure()
	tr.RecordAPIRequest()

	failures, total := tr.UpstreamErrorRate(time.Minute)
	if failures != 1 || total != 3 {
		t.Errorf("UpstreamErrorRate() = (%d, %d), want (1, 3)", failures, total)
	}
}

// TestTracker_WindowExpiry verifies outcomes older than the window are excluded and
// outcomes older than maxAge are pruned.
func TestTracker_WindowExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)
	tr.RecordUpstreamFailure()
	tr.RecordDenied()

	clock.Advance(2 * time.Minute)
	if failures, total := tr.UpstreamErrorRate(time.Minute); failures != 0 || total != 0 {
		t.Errorf("UpstreamErrorRate(1m) after 2m = (%d, %d), want (0, 0)", failures, total)
	}
	if n := tr.DenialCount(5 * time.Minute); n != 1 {
		t.Errorf("DenialCount(5m) = %d, want 1", n)
	}

	clock.Advance(maxAge)
	tr.RecordUpstreamSuccess() // triggers prune
	if failures, total := tr.UpstreamErrorRate(time.Hour); failures != 0 || total != 1 {
		t.Errorf("UpstreamErrorRate(1h) after prune = (%d, %d), want (0, 1)", failures, total)
	}
}

// TestPackageLevel_Reset verifies the process-wide tracker can be reset between tests.
func TestPackageLevel_Reset(t *testing.T) {
	Reset()
	RecordAPIRequest()
	RecordDenied()
	RecordUpstreamFailure()
	RecordUpstreamSuccess()
	if RequestCount(time.Minute) != 2 || DenialCount(time.Minute) != 1 {
		t.Fatalf("unexpected counts before reset")
	}
	Reset()
	if n := RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() after Reset = %d, want 0", n)
	}
	if failures, total := UpstreamErrorRate(time.Minute); failures != 0 || total != 0 {
		t.Errorf("UpstreamErrorRate() after Reset = (%d, %d), want (0, 0)", failures, total)
	}
}
