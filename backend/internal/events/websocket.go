package events

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Handler returns a gin handler that upgrades to a websocket and streams
// every event published on b until the client goes away.
func Handler(b *Broker, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			b.logger.Warn("Failed to upgrade websocket", zap.Error(err))
			return
		}
		defer ws.Close()

		events, cancel := b.Subscribe()
		defer cancel()
		b.logger.Info("Websocket client connected", zap.String("remote", c.ClientIP()))

		// the read loop only exists to notice disconnects and answer pings
		done := make(chan struct{})
		go func() {
			defer close(done)
			ws.SetReadDeadline(time.Now().Add(pongWait))
			ws.SetPongHandler(func(string) error {
				return ws.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteJSON(ev); err != nil {
					b.logger.Debug("Websocket write failed", zap.Error(err))
					return
				}
			case <-ticker.C:
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				b.logger.Info("Websocket client disconnected", zap.String("remote", c.ClientIP()))
				return
			case <-c.Request.Context().Done():
				return
			}
		}
	}
}
