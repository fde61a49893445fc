// Package metrics provides observability for the lockdown server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics. Safe for concurrent use.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSRateLimited       int64

	// Gameplay
	submissions map[string]int64 // by feedback kind
	outcomes    map[string]int64

	lastTickTime time.Time
	startTime    time.Time
	mu           sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		submissions: make(map[string]int64),
		outcomes:    make(map[string]int64),
		startTime:   time.Now(),
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.lastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the audit store.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordSubmission counts a code submission by its feedback kind.
func (c *Collector) RecordSubmission(feedback string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.submissions[feedback]++
	c.mu.Unlock()
}

// RecordOutcome counts a selected outcome.
func (c *Collector) RecordOutcome(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.outcomes[kind]++
	c.mu.Unlock()
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if c == nil {
		return
	}
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordRateLimited records a player action dropped by the rate limiter.
func (c *Collector) RecordRateLimited() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSRateLimited, 1)
}

// Submissions returns the count for one feedback kind.
func (c *Collector) Submissions(feedback string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.submissions[feedback]
}

// Outcomes returns the count for one outcome.
func (c *Collector) Outcomes(kind string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outcomes[kind]
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.startTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.lastTickTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"rate_limited":       atomic.LoadInt64(&c.WSRateLimited),
		},

		"submissions": copyCounts(c.submissions),
		"outcomes":    copyCounts(c.outcomes),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP lockdown_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE lockdown_tick_count counter\n")
		fmt.Fprintf(w, "lockdown_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP lockdown_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE lockdown_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "lockdown_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP lockdown_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE lockdown_events_written counter\n")
		fmt.Fprintf(w, "lockdown_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP lockdown_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE lockdown_event_write_errors counter\n")
		fmt.Fprintf(w, "lockdown_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP lockdown_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE lockdown_ws_connections gauge\n")
		fmt.Fprintf(w, "lockdown_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP lockdown_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE lockdown_ws_messages_total counter\n")
		fmt.Fprintf(w, "lockdown_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "lockdown_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		c.mu.RLock()
		defer c.mu.RUnlock()

		fmt.Fprintf(w, "# HELP lockdown_code_submissions_total Code submissions by feedback\n")
		fmt.Fprintf(w, "# TYPE lockdown_code_submissions_total counter\n")
		for _, k := range sortedKeys(c.submissions) {
			fmt.Fprintf(w, "lockdown_code_submissions_total{feedback=%q} %d\n", k, c.submissions[k])
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP lockdown_outcomes_total Selected outcomes\n")
		fmt.Fprintf(w, "# TYPE lockdown_outcomes_total counter\n")
		for _, k := range sortedKeys(c.outcomes) {
			fmt.Fprintf(w, "lockdown_outcomes_total{outcome=%q} %d\n", k, c.outcomes[k])
		}
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
