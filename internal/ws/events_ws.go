package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"

	"memochat/internal/observability"
)

// EventsHandler upgrades UI clients onto the event stream.
type EventsHandler struct {
	hub *Hub
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(hub *Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client.
func (h *EventsHandler) Handle(c *gin.Context) {
	chatID, err := parseChatFilter(c.Query("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	ctx, span := observability.Tracer("ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat.id", chatID))
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		ChatID:      chatID,
		IP:          observability.ClientIP(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	log.Printf("websocket connected conn_id=%s chat_id=%d ip=%s", info.ConnID, info.ChatID, info.IP)

	// clients only listen; reading detects the close
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			log.Printf("websocket disconnected conn_id=%s duration_ms=%d reason=%q",
				info.ConnID, time.Since(info.ConnectedAt).Milliseconds(), closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
		}
	}()
}
