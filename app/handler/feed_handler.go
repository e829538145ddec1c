package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gpuprices/internal/service"
	"gpuprices/pkg/logger"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedHandler streams newly ingested snapshot summaries over websocket
type FeedHandler struct {
	feed *service.SnapshotFeed
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feed *service.SnapshotFeed) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Snapshots upgrades the connection and writes one JSON message per new
// snapshot summary until the client goes away.
// @Router /api/v1/ws/snapshots [get]
func (h *FeedHandler) Snapshots(c *gin.Context) {
	ctx := c.Request.Context()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	summaries, cancel := h.feed.Subscribe()
	defer cancel()

	// client messages are ignored; reading is only needed for close and pong frames
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ws.SetReadDeadline(time.Now().Add(feedPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case summary, ok := <-summaries:
			_ = ws.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := ws.WriteJSON(summary); err != nil {
				logger.DebugCtx(ctx, "snapshot feed subscriber gone: %v", err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
