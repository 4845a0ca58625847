package handler

import (
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftline/market-sandbox/internal/obs"
	"github.com/driftline/market-sandbox/internal/signing"
	"github.com/driftline/market-sandbox/internal/stream"
)

// StreamHandler serves the live candle feed over SSE and WebSocket.
type StreamHandler struct {
	signer   *signing.Signer
	registry *stream.Registry
	opts     stream.Options
	log      zerolog.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(signer *signing.Signer, registry *stream.Registry, opts stream.Options, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{signer: signer, registry: registry, opts: opts, log: log}
}

// Live streams signed candle events as SSE until the client disconnects.
// GET /api/v1/stream/live?cursor=<sequence>
func (h *StreamHandler) Live(c *gin.Context) {
	cursor := resumeCursor(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	conn := h.registry.Register(c.ClientIP(), "sse", cursor)
	defer h.registry.Release(conn)
	obs.StreamsActive.WithLabelValues("sse").Inc()
	defer obs.StreamsActive.WithLabelValues("sse").Dec()

	sess := stream.NewSession(cursor, h.signer, h.opts)
	h.log.Info().
		Str("conn", conn.ID).
		Str("client", c.ClientIP()).
		Int64("resume", sess.ResumeSequence()).
		Msg("sse stream opened")

	writer := &sseWriter{w: c.Writer, conn: conn}
	if err := sess.Run(c.Request.Context(), writer); err != nil {
		h.log.Debug().Err(err).Str("conn", conn.ID).Msg("sse stream ended")
	}
	h.log.Info().Str("conn", conn.ID).Msg("sse stream closed")
}

// resumeCursor reads the resume point from the cursor query parameter, then
// from the reconnection header the EventSource API sends.
func resumeCursor(c *gin.Context) string {
	if cursor := c.Query("cursor"); cursor != "" {
		return cursor
	}
	return c.GetHeader("Last-Event-ID")
}

// sseWriter adapts the gin response writer to the session's EventWriter,
// flushing after every frame so intermediaries cannot batch events.
type sseWriter struct {
	w    gin.ResponseWriter
	conn *stream.Conn
}

func (s *sseWriter) WriteEvent(ev sse.Event) error {
	if err := sse.Encode(s.w, ev); err != nil {
		return err
	}
	s.w.Flush()
	s.conn.NoteEvent()
	obs.EventsTotal.WithLabelValues("sse", ev.Event).Inc()
	return nil
}

func (s *sseWriter) WriteComment(comment string) error {
	if _, err := io.WriteString(s.w, ": "+comment+"\n\n"); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}
