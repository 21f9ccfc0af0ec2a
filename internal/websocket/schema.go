package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
	ActionSave Action = "save"
)

// RequestEnvelope is every message a client sends on the draft stream.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventDraftSaved   Event = "draft_saved"
	EventExamsChanged Event = "exams_changed"
	EventSubmitted    Event = "submitted"
	EventClosed       Event = "closed"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

// DraftSavedResponse reports a completed autosave.
type DraftSavedResponse struct {
	Event   Event     `json:"event"`
	FormID  string    `json:"form_id"`
	SavedAt time.Time `json:"saved_at"`
}

// FormResponse reports a change to the form itself.
type FormResponse struct {
	Event    Event  `json:"event"`
	FormID   string `json:"form_id"`
	CourseID string `json:"course_id,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
