package metrics

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecordTick(t *testing.T) {
	c := NewCollector()
	c.RecordTick(2 * time.Millisecond)
	c.RecordTick(5 * time.Millisecond)

	if c.TickCount != 2 {
		t.Fatalf("expected 2 ticks got %d", c.TickCount)
	}
	if c.TickLatencyMax != int64(5*time.Millisecond) {
		t.Fatalf("expected max 5ms got %d", c.TickLatencyMax)
	}
}

func TestGameplayCounters(t *testing.T) {
	c := NewCollector()
	c.RecordSubmission("ACCEPTED")
	c.RecordSubmission("ACCEPTED")
	c.RecordSubmission("UNRECOGNIZED")
	c.RecordOutcome("TRAPPED")
	c.RecordEventWrite(time.Millisecond, errors.New("x"))

	if c.Submissions("ACCEPTED") != 2 {
		t.Fatalf("expected 2 accepted got %d", c.Submissions("ACCEPTED"))
	}
	if c.Outcomes("TRAPPED") != 1 {
		t.Fatalf("expected 1 trapped got %d", c.Outcomes("TRAPPED"))
	}
	if c.EventWriteErrors != 1 {
		t.Fatalf("expected 1 write error got %d", c.EventWriteErrors)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordTick(time.Millisecond)
	c.RecordSubmission("ACCEPTED")
	c.RecordOutcome("ESCAPE")
	c.RecordWSError()
}

func TestHandlers(t *testing.T) {
	c := NewCollector()
	c.RecordOutcome("ESCAPE")

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := body["outcomes"]; !ok {
		t.Fatalf("expected outcomes section in %v", body)
	}

	rec = httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	if !strings.Contains(rec.Body.String(), `lockdown_outcomes_total{outcome="ESCAPE"} 1`) {
		t.Fatalf("expected outcome counter in %q", rec.Body.String())
	}
}
