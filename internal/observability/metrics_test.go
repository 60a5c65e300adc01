package observability

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDecodeSplitsByOutcome(t *testing.T) {
	okBefore := testutil.ToFloat64(framesDecoded.WithLabelValues("call_req"))
	errBefore := testutil.ToFloat64(decodeErrors.WithLabelValues("call_req"))

	RecordDecode("call_req", nil)
	RecordDecode("call_req", errors.New("boom"))

	if got := testutil.ToFloat64(framesDecoded.WithLabelValues("call_req")); got != okBefore+1 {
		t.Fatalf("frames decoded: got %v want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(decodeErrors.WithLabelValues("call_req")); got != errBefore+1 {
		t.Fatalf("decode errors: got %v want %v", got, errBefore+1)
	}
}

func TestRecordRateLimitVerdict(t *testing.T) {
	before := testutil.ToFloat64(rateLimitVerdicts.WithLabelValues("throttled"))
	RecordRateLimitVerdict(false)
	if got := testutil.ToFloat64(rateLimitVerdicts.WithLabelValues("throttled")); got != before+1 {
		t.Fatalf("throttled verdicts: got %v want %v", got, before+1)
	}
}

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}
