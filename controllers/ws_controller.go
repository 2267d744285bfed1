package controllers

import (
	"log"
	"net/http"

	"github.com/bits-his/nibbes-api/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Every connected client receives every event; the event stream is not
	// a security boundary, so cross-origin browser clients are accepted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeOrderEvents handles GET /api/v1/ws - upgrades the connection and
// streams order events to the client until it disconnects. Clients are
// expected to do a full fetch right after connecting; events published
// before the connection are never replayed.
func ServeOrderEvents(c *gin.Context) {
	broadcaster := services.GetBroadcastService()
	if broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "REALTIME_UNAVAILABLE",
				"message": "Real-time updates are not available, use polling",
			},
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sub := broadcaster.Subscribe()

	// Writer: one goroutine owns all writes to the connection. A write
	// failure means the client is gone; closing the connection wakes the
	// read loop below, which cleans up the subscription.
	go func() {
		defer func() {
			if err := conn.Close(); err != nil {
				log.Printf("Failed to close WebSocket connection: %v", err)
			}
		}()

		for event := range sub.Events {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("Failed to deliver %s event to client: %v", event.Type, err)
				return
			}
		}

		// Subscription closed: tell the client we're done
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// Reader: the channel is server-to-client only; inbound frames are
	// discarded, but reading is what detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	broadcaster.Unsubscribe(sub)
}
