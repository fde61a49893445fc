package network

import (
	"encoding/json"

	"github.com/MRamiBalles/lockdown/internal/domain/clue"
	"github.com/MRamiBalles/lockdown/internal/engine"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
)

// Player action types accepted over the websocket.
const (
	ActionSubmitCode    = "SUBMIT_CODE"
	ActionDiscover      = "DISCOVER"
	ActionChoose        = "CHOOSE"
	ActionEscape        = "ESCAPE"
	ActionPause         = "PAUSE"
	ActionResume        = "RESUME"
	ActionElectricity   = "ELECTRICITY"
	ActionWaterTap      = "WATER_TAP"
	ActionCaptcha       = "CAPTCHA"
	ActionReleaseMemory = "RELEASE_MEMORY"
	ActionRestart       = "RESTART"
)

// ReplyType tags action replies so clients can tell them apart from events.
const ReplyType = "ACTION_RESULT"

// PlayerAction represents an incoming command from the presentation layer.
type PlayerAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"` // Action-specific data
}

type submitPayload struct {
	Code string `json:"code"`
}

type discoverPayload struct {
	ClueType clue.Type `json:"clue_type"`
	Code     string    `json:"code"`
}

type choosePayload struct {
	Release bool `json:"release"`
}

type tapPayload struct {
	Running bool `json:"running"`
}

// Reply answers one PlayerAction.
type Reply struct {
	Type    string         `json:"type"`
	Action  string         `json:"action"`
	OK      bool           `json:"ok"`
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error,omitempty"`
	Result  *engine.Result `json:"result,omitempty"`
	Session string         `json:"session,omitempty"` // set by RESTART
}

func success(action string) Reply {
	return Reply{Type: ReplyType, Action: action, OK: true}
}

func failure(action string, code apperrors.Code, msg string) Reply {
	return Reply{Type: ReplyType, Action: action, Code: string(code), Error: msg}
}

func fromResult(action string, res engine.Result) Reply {
	r := Reply{Type: ReplyType, Action: action, OK: res.Err == nil, Result: &res}
	if res.Err != nil {
		r.Code = string(apperrors.CodeOf(res.Err))
	}
	return r
}

func restartReply(s *engine.Session, err error) Reply {
	if err != nil {
		return failure(ActionRestart, apperrors.CodeOf(err), err.Error())
	}
	r := success(ActionRestart)
	r.Session = s.ID()
	return r
}

func decode(action PlayerAction, v interface{}) error {
	if len(action.Payload) == 0 {
		return apperrors.New(apperrors.CodeMalformed, action.Type+" needs a payload")
	}
	if err := json.Unmarshal(action.Payload, v); err != nil {
		return apperrors.Wrap(apperrors.CodeMalformed, "bad "+action.Type+" payload", err)
	}
	return nil
}

// buildCommand turns an action into a command for the session goroutine.
// respond is called from that goroutine with the outcome.
func buildCommand(action PlayerAction, respond func(Reply)) (engine.Command, error) {
	name := action.Type
	switch name {
	case ActionSubmitCode:
		var p submitPayload
		if err := decode(action, &p); err != nil {
			return nil, err
		}
		return func(s *engine.Session) { respond(fromResult(name, s.SubmitCode(p.Code))) }, nil

	case ActionDiscover:
		var p discoverPayload
		if err := decode(action, &p); err != nil {
			return nil, err
		}
		return func(s *engine.Session) {
			if s.MarkDiscovered(p.ClueType, p.Code) {
				respond(success(name))
				return
			}
			respond(failure(name, apperrors.CodeInvalidInput, "clue already discovered or invalid"))
		}, nil

	case ActionChoose:
		var p choosePayload
		if err := decode(action, &p); err != nil {
			return nil, err
		}
		return func(s *engine.Session) { respond(fromResult(name, s.ChooseMemoryRelease(p.Release))) }, nil

	case ActionEscape:
		return func(s *engine.Session) { respond(fromResult(name, s.Escape())) }, nil

	case ActionPause:
		return func(s *engine.Session) {
			s.Pause()
			respond(success(name))
		}, nil

	case ActionResume:
		return func(s *engine.Session) {
			s.Resume()
			respond(success(name))
		}, nil

	case ActionElectricity:
		return func(s *engine.Session) {
			s.OnElectricityConnected()
			respond(success(name))
		}, nil

	case ActionWaterTap:
		var p tapPayload
		if err := decode(action, &p); err != nil {
			return nil, err
		}
		return func(s *engine.Session) {
			s.OnWaterTapStateChanged(p.Running)
			respond(success(name))
		}, nil

	case ActionCaptcha:
		return func(s *engine.Session) {
			s.OnCaptchaSolved()
			respond(success(name))
		}, nil

	case ActionReleaseMemory:
		return func(s *engine.Session) {
			if s.OnMemoryReleased() {
				respond(success(name))
				return
			}
			respond(failure(name, apperrors.CodeInvalidInput, "memory already released"))
		}, nil
	}
	return nil, apperrors.WithMetadata(apperrors.CodeUnknownAction, "unknown action "+name, map[string]string{"type": name})
}
