package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/driftline/market-sandbox/internal/obs"
	"github.com/driftline/market-sandbox/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the demo feed is public, same as the SSE endpoint
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame mirrors the SSE framing fields for WebSocket consumers.
type wsFrame struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// LiveWS streams the same signed candle feed over a WebSocket.
// GET /api/v1/stream/ws?cursor=<sequence>
func (h *StreamHandler) LiveWS(c *gin.Context) {
	cursor := resumeCursor(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	conn := h.registry.Register(c.ClientIP(), "ws", cursor)
	defer h.registry.Release(conn)
	obs.StreamsActive.WithLabelValues("ws").Inc()
	defer obs.StreamsActive.WithLabelValues("ws").Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// drain the read side so a client close tears the session down
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sess := stream.NewSession(cursor, h.signer, h.opts)
	h.log.Info().
		Str("conn", conn.ID).
		Str("client", c.ClientIP()).
		Int64("resume", sess.ResumeSequence()).
		Msg("ws stream opened")

	writer := &wsWriter{ws: ws, conn: conn}
	if err := sess.Run(ctx, writer); err != nil {
		h.log.Debug().Err(err).Str("conn", conn.ID).Msg("ws stream ended")
	}
	h.log.Info().Str("conn", conn.ID).Msg("ws stream closed")
}

// wsWriter adapts a websocket connection to the session's EventWriter.
// Heartbeat comments become ping control frames.
type wsWriter struct {
	ws   *websocket.Conn
	conn *stream.Conn
}

func (w *wsWriter) WriteEvent(ev sse.Event) error {
	frame := wsFrame{ID: ev.Id, Event: ev.Event, Data: ev.Data}
	if err := w.ws.WriteJSON(frame); err != nil {
		return err
	}
	w.conn.NoteEvent()
	obs.EventsTotal.WithLabelValues("ws", ev.Event).Inc()
	return nil
}

func (w *wsWriter) WriteComment(comment string) error {
	return w.ws.WriteControl(websocket.PingMessage, []byte(comment), time.Now().Add(5*time.Second))
}
