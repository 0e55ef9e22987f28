package handler

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"checkin-queue/internal/realtime"
)

// QueueWebSocket serves one staff observer. The client never sends
// protocol messages; reads only drive pong handling and close detection.
func (h *Handler) QueueWebSocket(c *websocket.Conn) {
	obs := realtime.NewWSObserver(c, h.opts.WriteTimeout)
	log.Printf("[realtime] %s connecting from %s", obs.ID(), c.RemoteAddr())

	handle, err := h.hub.Register(context.Background(), obs)
	if err != nil {
		log.Printf("[realtime] %s rejected: %v", obs.ID(), err)
		return
	}
	defer h.hub.Unregister(handle)

	c.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
		return nil
	})

	go func() {
		ticker := time.NewTicker(h.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := obs.Ping(); err != nil {
					log.Printf("[realtime] %s ping error: %v", obs.ID(), err)
					return
				}
			case <-obs.Done():
				return
			}
		}
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				log.Printf("[realtime] %s unexpected close: %v", obs.ID(), err)
			} else {
				log.Printf("[realtime] %s closed", obs.ID())
			}
			return
		}
	}
}
