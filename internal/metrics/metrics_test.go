// ABOUTME: Tests for metric recording helpers.
// ABOUTME: Reads collector values back with prometheus testutil.
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngest(t *testing.T) {
	acceptedBefore := testutil.ToFloat64(IngestRowsAccepted)
	rejectedBefore := testutil.ToFloat64(IngestRowsRejected)

	RecordIngest("ok", 4, 1, 20*time.Millisecond)

	if got := testutil.ToFloat64(IngestRowsAccepted) - acceptedBefore; got != 4 {
		t.Errorf("accepted delta = %v, want 4", got)
	}
	if got := testutil.ToFloat64(IngestRowsRejected) - rejectedBefore; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues("GET", "/experimentos/{id}", "404")
	before := testutil.ToFloat64(counter)

	RecordAPIRequest("GET", "/experimentos/{id}", 404, time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("request counter delta = %v, want 1", got)
	}
}

func TestTrackWorker(t *testing.T) {
	before := testutil.ToFloat64(WorkerInFlight)

	TrackWorker(true)
	if got := testutil.ToFloat64(WorkerInFlight); got != before+1 {
		t.Errorf("in-flight = %v, want %v", got, before+1)
	}
	TrackWorker(false)
	if got := testutil.ToFloat64(WorkerInFlight); got != before {
		t.Errorf("in-flight = %v, want %v", got, before)
	}
}
