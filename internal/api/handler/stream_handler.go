package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/martijn/harvestd/internal/api/middleware"
	"github.com/martijn/harvestd/internal/core/service"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// StreamHandler pushes live run snapshots to WebSocket observers
type StreamHandler struct {
	runService *service.RunService
	interval   time.Duration
	upgrader   websocket.Upgrader
	log        *zap.SugaredLogger
}

func NewStreamHandler(runService *service.RunService, interval time.Duration, origins middleware.OriginPolicy, log *zap.SugaredLogger) *StreamHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &StreamHandler{
		runService: runService,
		interval:   interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.AllowsRequest,
		},
		log: log,
	}
}

// Stream handles GET /ws. Every interval the observer receives the active
// run's id, progress and new lines; nothing is sent while idle.
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.log.Debugw("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	observer := h.runService.Subscribe()
	defer observer.Close()
	h.log.Debugw("Observer attached", "remote", c.ClientIP(), "observers", h.runService.Observers())

	// Observers never send anything meaningful; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pongWait / 2)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			h.log.Debugw("Observer detached", "remote", c.ClientIP())
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			update, ok := h.runService.Poll(observer)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				h.log.Debugw("Observer write failed", "error", err)
				return
			}
		}
	}
}
