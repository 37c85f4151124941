package callsHandler

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	livePingInterval = 30 * time.Second
	liveWriteTimeout = 5 * time.Second
)

// handleLiveFeed streams call events to an operator console until either
// side goes away.
func (h *CallsHandler) handleLiveFeed(c *websocket.Conn) {
	id, events, cancel := h.feed.Subscribe(0)
	defer cancel()

	h.log.WithField("subscriber", id).Info("Live feed client connected")
	defer h.log.WithField("subscriber", id).Info("Live feed client disconnected")

	// Reads only drain control frames; a read error means the client left.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Errorf("Live feed read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := c.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
			if err := c.WriteJSON(e); err != nil {
				h.log.Errorf("Error writing live event: %v", err)
				return
			}
		case <-ping.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
		}
	}
}
