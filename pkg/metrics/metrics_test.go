package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordActivationAndStall(t *testing.T) {
	RecordActivation("table", "resolved", 5*time.Millisecond)
	RecordStall("table")
	SetQueueDepth(3)
	RecordAssetWait("script", time.Millisecond)
	RecordEnvelopeIngested("scan")
	// No assertions against private collectors; exercised for panics only,
	// mirroring the record-then-scrape pattern used across the service.
}

func TestInstrumentHandlerRecordsStatus(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/envelopes", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTeapot)
	}
}

func TestRecorderCounterReuseAcrossCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.Counter("script_runs", map[string]string{"class": "table"}, 1)
	rec.Counter("script_runs", map[string]string{"class": "table"}, 2)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var found bool
	for _, mf := range metrics {
		if mf.GetName() == "djcomponent_adhoc_m_script_runs" {
			found = true
			if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 3 {
				t.Errorf("counter value = %v, want 3", got)
			}
		}
	}
	if !found {
		t.Fatalf("expected registered metric family, got %+v", metrics)
	}
}

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":               "/",
		"/":              "/",
		"/envelopes":     "/envelopes",
		"/envelopes/abc": "/envelopes",
	}
	for in, want := range cases {
		if got := canonicalPath(in); got != want {
			t.Errorf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}
