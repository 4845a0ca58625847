// Package handler contains the HTTP handlers of the feed service.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftline/market-sandbox/internal/domain/model"
	"github.com/driftline/market-sandbox/internal/market"
	"github.com/driftline/market-sandbox/internal/obs"
	"github.com/driftline/market-sandbox/internal/signing"
)

const (
	historyDefaultCount = 360
	historyMinCount     = 10
	historyMaxCount     = 1200
)

// HistoryHandler serves bounded windows of signed historical candles.
type HistoryHandler struct {
	signer *signing.Signer
	log    zerolog.Logger
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(signer *signing.Signer, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{signer: signer, log: log}
}

// Get returns count historical candles ending now, each individually signed.
// GET /api/v1/candles/history?count=360
func (h *HistoryHandler) Get(c *gin.Context) {
	count := parseCount(c.Query("count"))
	generatedAt := time.Now().UnixMilli()

	candles := market.BuildHistory(count, generatedAt)
	signed := make([]model.SignedCandle, 0, len(candles))
	for _, candle := range candles {
		sig, err := h.signer.SignJSON(candle)
		if err != nil {
			h.log.Error().Err(err).Msg("sign history candle")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign candles"})
			return
		}
		signed = append(signed, model.SignedCandle{CandleSnapshot: candle, Signature: sig})
	}

	obs.HistoryRequests.Inc()
	c.JSON(http.StatusOK, gin.H{
		"metadata": gin.H{
			"count":       count,
			"intervalMs":  market.IntervalMs,
			"generatedAt": generatedAt,
		},
		"candles": signed,
	})
}

// parseCount clamps the requested window to [10, 1200]; absent or
// unparseable input falls back to the default rather than erroring.
func parseCount(raw string) int {
	seq, ok := market.ParseSequence(raw)
	if !ok {
		return historyDefaultCount
	}
	count := int(seq)
	if count < historyMinCount {
		return historyMinCount
	}
	if count > historyMaxCount {
		return historyMaxCount
	}
	return count
}
