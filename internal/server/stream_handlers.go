package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/folio/internal/modules/portfolio"
)

const streamWriteWait = 10 * time.Second

// SummarySource produces the portfolio totals pushed over the stream
type SummarySource interface {
	GetSummary() (*portfolio.Summary, error)
}

// StreamMessage is one websocket frame
type StreamMessage struct {
	Type      string             `json:"type"`
	Data      *portfolio.Summary `json:"data"`
	Timestamp string             `json:"timestamp"`
}

// StreamHandler pushes portfolio summary snapshots over a websocket
type StreamHandler struct {
	summaries SummarySource
	interval  time.Duration
	log       zerolog.Logger
}

// NewStreamHandler creates a websocket stream handler
func NewStreamHandler(summaries SummarySource, interval time.Duration, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		summaries: summaries,
		interval:  interval,
		log:       log.With().Str("handler", "stream").Logger(),
	}
}

// ServeHTTP upgrades the connection and pushes a snapshot immediately,
// then on every interval tick until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// The stream is push-only. CloseRead discards inbound frames and
	// cancels the returned context when the client goes away.
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Stream client connected")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.push(ctx, conn); err != nil {
			h.log.Debug().Err(err).Msg("Stream push failed, closing")
			return
		}

		select {
		case <-ctx.Done():
			h.log.Debug().Str("remote", r.RemoteAddr).Msg("Stream client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

// push writes one summary snapshot frame
func (h *StreamHandler) push(ctx context.Context, conn *websocket.Conn) error {
	summary, err := h.summaries.GetSummary()
	if err != nil {
		// Skip the frame on store errors, the next tick retries
		h.log.Warn().Err(err).Msg("Summary unavailable, skipping stream push")
		return nil
	}

	msg := StreamMessage{
		Type:      "portfolio_summary",
		Data:      summary,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data)
}
