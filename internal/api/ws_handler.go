package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/api/shared"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/broker"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/events"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/platform/logger"
	"github.com/RajendraPrasadR/AI-Agent-Backend/internal/redact"
)

// wsWriteTimeout bounds each websocket write so one stuck client cannot pin
// the handler goroutine.
const wsWriteTimeout = 10 * time.Second

// EventsHandler streams live task status events over WebSocket connections
type EventsHandler struct {
	broadcaster *events.Broadcaster
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(broadcaster *events.Broadcaster, logger *slog.Logger) *EventsHandler {
	if broadcaster == nil {
		panic("broadcaster cannot be nil for EventsHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for EventsHandler")
	}

	return &EventsHandler{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the authentication layer, which this
			// API does not carry
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "events_handler")),
	}
}

// StreamTaskEvents handles GET /api/tasks/{id}/events requests.
// The subscription is established before the upgrade, so unknown tasks get a
// plain HTTP 404 and connected clients never miss a transition. The first
// frame is always the task's current status; the stream ends after the
// terminal event.
func (h *EventsHandler) StreamTaskEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, ok := pathTaskID(w, r, log)
	if !ok {
		return
	}

	sub, err := h.broadcaster.Subscribe(r.Context(), taskID)
	if errors.Is(err, events.ErrTaskNotFound) {
		log.Debug("event stream requested for unknown task",
			slog.String("task_id", taskID.String()))
		shared.RespondWithJSON(w, r, http.StatusNotFound, taskNotFoundResponse(taskID.String()))
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		_ = sub.Close()
		log.Warn("websocket upgrade failed",
			slog.String("task_id", taskID.String()),
			slog.String("error", redact.Error(err)))
		return
	}

	log.Debug("event stream opened", slog.String("task_id", taskID.String()))
	h.stream(conn, sub, taskID, log)
}

// stream forwards subscription events to the connection until the stream
// ends or the client goes away.
func (h *EventsHandler) stream(
	conn *websocket.Conn,
	sub broker.Subscription,
	taskID uuid.UUID,
	log *slog.Logger,
) {
	defer func() {
		_ = sub.Close()
		_ = conn.Close()
	}()

	// Drain client frames so close frames are processed and the writer
	// notices a vanished peer
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Terminal event delivered or broker shut down
				deadline := time.Now().Add(wsWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				log.Debug("event stream finished", slog.String("task_id", taskID.String()))
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				log.Debug("event stream write failed, dropping client",
					slog.String("task_id", taskID.String()),
					slog.String("error", redact.Error(err)))
				return
			}
		case <-clientGone:
			log.Debug("event stream client disconnected",
				slog.String("task_id", taskID.String()))
			return
		}
	}
}
