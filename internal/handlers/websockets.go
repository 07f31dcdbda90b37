package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12

	defaultPushInterval = time.Second
	maxPushInterval     = 10 * time.Second
)

type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// wsView is what one client asked to see.
type wsView struct {
	device string
	limit  int
}

// checkOrigin admits requests without an Origin header (non-browser clients)
// and, when an allow-list is configured, only the listed browser origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if len(h.origins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// @Summary      Dashboard stream
// @Description  WebSocket; pushes a snapshot immediately and then every interval.
// @Tags         system
// @Param        interval     query  string  false  "Push period as Go duration (max 10s)"  example(500ms)
// @Param        interval_ms  query  int     false  "Push period in ms (max 10000)"
// @Param        device       query  string  false  "Latest-per-sensor device filter"
// @Param        limit        query  int     false  "Rows in the readings table"  default(100)
// @Failure      403
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	every := pushInterval(c)
	view := wsView{device: c.Query("device"), limit: parseLimit(c, defaultReadingsLimit)}

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Infow("ws_upgrade_rejected", "origin", c.GetHeader("Origin"), "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go h.discardInbound(conn, closed)

	push := time.NewTicker(every)
	ping := time.NewTicker(pingPeriod)
	defer push.Stop()
	defer ping.Stop()

	if err := h.sendSnapshot(conn, view); err != nil {
		h.wsDebug("ws_initial_snapshot_failed", err)
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.wsDebug("ws_ping_failed", err)
				return
			}
		case <-push.C:
			if err := h.sendSnapshot(conn, view); err != nil {
				h.wsDebug("ws_snapshot_failed", err)
				return
			}
		}
	}
}

// pushInterval reads ?interval=2s or ?interval_ms=2000; out-of-range values fall back to 1s.
func pushInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxPushInterval {
			return d
		}
	}
	if s := c.Query("interval_ms"); s != "" {
		if ms, err := strconv.Atoi(s); err == nil && ms > 0 && time.Duration(ms)*time.Millisecond <= maxPushInterval {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultPushInterval
}

// discardInbound keeps control frames flowing; clients have nothing to say.
func (h *Handler) discardInbound(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.wsDebug("ws_client_gone", err)
			return
		}
	}
}

func (h *Handler) sendSnapshot(conn *websocket.Conn, v wsView) error {
	snap := h.services.Snapshot(v.device, v.limit)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "snapshot", Data: snap})
}

func (h *Handler) wsDebug(event string, err error) {
	if h.log != nil {
		h.log.Debugw(event, "err", err)
	}
}
