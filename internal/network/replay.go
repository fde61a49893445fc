package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MRamiBalles/lockdown/internal/engine"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
)

const queryTimeout = 2 * time.Second

// Querier runs a read against the session on its own goroutine.
// engine.Loop implements it.
type Querier interface {
	Query(ctx context.Context, fn engine.Command) error
}

// ReplayHandler serves the session's history and current state.
type ReplayHandler struct {
	session Querier
	logger  *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(q Querier, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{session: q, logger: log}
}

// ReplayEvent is one history entry in public form.
type ReplayEvent struct {
	ID          string      `json:"id"`
	Timestamp   string      `json:"timestamp"`
	Elapsed     float64     `json:"elapsed"`
	DisplayTime string      `json:"display_time"`
	Type        string      `json:"type"`
	ActorID     string      `json:"actor_id"`
	Summary     string      `json:"summary"`
	Payload     interface{} `json:"payload,omitempty"`
}

// ReplayResponse is the API response for a replay.
type ReplayResponse struct {
	SessionID   string        `json:"session_id"`
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	Events      []ReplayEvent `json:"events"`
}

// HandleReplay returns the recorded history, optionally filtered by event type.
// GET /api/replay?type=CODE_ACCEPTED
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	eventType := events.EventType(r.URL.Query().Get("type"))

	response := ReplayResponse{
		FilteredBy:  string(eventType),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      []ReplayEvent{},
	}
	err := rh.query(r.Context(), func(s *engine.Session) {
		history := s.History()
		if eventType != "" {
			history = s.HistoryByType(eventType)
		}
		response.SessionID = s.ID()
		for _, e := range history {
			response.Events = append(response.Events, ReplayEvent{
				ID:          e.ID,
				Timestamp:   e.Timestamp.Format("15:04:05"),
				Elapsed:     e.Elapsed,
				DisplayTime: s.FormatDisplayTime(e.Elapsed),
				Type:        string(e.Type),
				ActorID:     e.ActorID,
				Summary:     summarizeEvent(e),
				Payload:     e.Payload,
			})
		}
	})
	if err != nil {
		rh.unavailable(w, err)
		return
	}
	response.TotalEvents = len(response.Events)

	rh.logger.Debug("replay served", "events", response.TotalEvents, "type", eventType)
	rh.writeJSON(w, response)
}

// HandleState returns a snapshot of the running session.
// GET /api/state
func (rh *ReplayHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var snap engine.Snapshot
	if err := rh.query(r.Context(), func(s *engine.Session) { snap = s.Snapshot() }); err != nil {
		rh.unavailable(w, err)
		return
	}
	rh.writeJSON(w, snap)
}

// HandleStats returns event counts by type.
// GET /api/replay/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rh.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats := map[string]int{}
	total := 0
	err := rh.query(r.Context(), func(s *engine.Session) {
		for _, e := range s.History() {
			stats[string(e.Type)]++
			total++
		}
	})
	if err != nil {
		rh.unavailable(w, err)
		return
	}
	rh.writeJSON(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"total_events": total,
		"by_type":      stats,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/replay", rh.HandleReplay)
	mux.HandleFunc("/api/replay/stats", rh.HandleStats)
	mux.HandleFunc("/api/state", rh.HandleState)
}

func (rh *ReplayHandler) query(ctx context.Context, fn engine.Command) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return rh.session.Query(ctx, fn)
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.GameEvent) string {
	switch e.Type {
	case events.EventTypePhaseChanged:
		if p, ok := e.Payload.(events.PhaseChangedPayload); ok {
			return "Phase changed from " + p.From + " to " + p.To + "."
		}
		return "Phase changed."
	case events.EventTypeLockdownInitiated:
		return "The facility went into lockdown."
	case events.EventTypeEscapeWindowClosed:
		return "The escape window closed."
	case events.EventTypeLockdownEnded:
		return "The lockdown ended."
	case events.EventTypeTimeExtended:
		return "The lockdown was delayed."
	case events.EventTypeCodeDiscovered:
		return "A clue was found."
	case events.EventTypeCodeAccepted:
		return "A code was accepted."
	case events.EventTypeCodeRejected:
		return "A code was rejected."
	case events.EventTypeTrapChoice:
		return "The false code offered a choice."
	case events.EventTypeMemoryReleased:
		return "The memory was released."
	case events.EventTypeMemoryDepleted:
		return "The memory ran out."
	case events.EventTypeOutcomeSelected:
		if p, ok := e.Payload.(events.OutcomePayload); ok {
			return "The session ended: " + p.Outcome + "."
		}
		return "The session ended."
	case events.EventTypePlayerAction:
		if p, ok := e.Payload.(events.PlayerActionPayload); ok {
			return "Player action: " + p.Action + "."
		}
		return "Player action."
	case events.EventTypeSessionPaused:
		return "The session paused."
	case events.EventTypeSessionResumed:
		return "The session resumed."
	case events.EventTypeCue:
		return "A presentation cue fired."
	default:
		return "Something happened."
	}
}

func (rh *ReplayHandler) unavailable(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	rh.logger.Warn("session query failed", "error", err)
	rh.jsonError(w, err.Error(), status)
}

func (rh *ReplayHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rh.logger.Error("failed to encode response", "error", err)
	}
}

// jsonError sends an error response.
func (rh *ReplayHandler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
