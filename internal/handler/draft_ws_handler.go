package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ibnmalik/lms-admin/internal/service"
	ws "github.com/ibnmalik/lms-admin/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// DraftWSHandler streams a form's autosave status to the admin UI.
type DraftWSHandler struct {
	forms    *service.CourseFormService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewDraftWSHandler creates a new DraftWSHandler.
func NewDraftWSHandler(forms *service.CourseFormService, log zerolog.Logger, allowedOrigins []string) *DraftWSHandler {
	return &DraftWSHandler{
		forms:    forms,
		log:      log.With().Str("component", "draft_ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// DraftStream godoc
// WS /ws/v1/admin/course-forms/:form_id/draft
// Pushes draft_saved, exams_changed, submitted and closed events. Clients may
// send {"action":"ping"} or {"action":"save"}.
func (h *DraftWSHandler) DraftStream(c *gin.Context) {
	form, ok := lookupForm(c, h.forms, h.log)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("form_id", form.ID).
		Int("admin_id", form.AdminID).
		Logger()
	wsLog.Info().Msg("Admin connected")

	events, cancel := form.Subscribe()
	defer cancel()

	replies := make(chan any, 4)
	readDone := make(chan struct{})
	go h.readLoop(conn, form, wsLog, replies, readDone)

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				ws.WriteClose(conn, "form closed")
				return
			}
			if err := ws.WriteTyped(conn, eventMessage(ev)); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		case msg := <-replies:
			if err := ws.WriteTyped(conn, msg); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

// readLoop handles client actions. Replies go through the writer loop since
// a connection allows one writer at a time.
func (h *DraftWSHandler) readLoop(conn *websocket.Conn, form *service.CourseForm, log zerolog.Logger, replies chan<- any, done chan<- struct{}) {
	defer close(done)
	ws.KeepAlive(conn)

	reply := func(v any) {
		select {
		case replies <- v:
		default:
		}
	}

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			reply(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionSave:
			ctx, cancel := context.WithTimeout(context.Background(), ws.WriteWait)
			err := form.SaveDraftNow(ctx)
			cancel()
			if err != nil {
				reply(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
			}
		default:
			log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			reply(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)})
		}
	}
}

func eventMessage(ev service.FormEvent) any {
	switch ev.Type {
	case service.EventDraftSaved:
		return ws.DraftSavedResponse{Event: ws.EventDraftSaved, FormID: ev.FormID, SavedAt: ev.SavedAt}
	default:
		return ws.FormResponse{Event: ws.Event(ev.Type), FormID: ev.FormID, CourseID: ev.CourseID}
	}
}
