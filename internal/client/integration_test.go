package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/market-sandbox/internal/api/router"
	"github.com/driftline/market-sandbox/internal/client"
	"github.com/driftline/market-sandbox/internal/domain/model"
	"github.com/driftline/market-sandbox/internal/signing"
	"github.com/driftline/market-sandbox/internal/stream"
	jwtpkg "github.com/driftline/market-sandbox/pkg/jwt"
	"github.com/driftline/market-sandbox/pkg/ratelimit"
)

const e2eSecret = "e2e-signing-secret"

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer, err := signing.New(e2eSecret, false, zerolog.Nop())
	require.NoError(t, err)

	r := router.Setup(&router.Config{
		Signer:     signer,
		Registry:   stream.NewRegistry(),
		JWTManager: jwtpkg.NewManager("e2e-jwt", time.Hour),
		Limits: ratelimit.NewPerRoute(map[string]*ratelimit.Limiter{
			"history": ratelimit.NewLimiter(100),
			"stream":  ratelimit.NewLimiter(100),
		}),
		Stream: stream.Options{
			CandleInterval:    15 * time.Millisecond,
			HeartbeatInterval: 40 * time.Millisecond,
			RetryMillis:       5000,
		},
		Logger: zerolog.Nop(),
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestEndToEnd_StreamWithHistoryAndVerification(t *testing.T) {
	ts := startServer(t)

	store := client.NewStore()
	ctrl, err := client.NewController(store, client.Options{
		BaseURL:      ts.URL,
		HistoryCount: 30,
		VerifySecret: e2eSecret,
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return store.Status() == model.StatusConnected
	}, 3*time.Second, 10*time.Millisecond)

	// live candles plus the hydrated history converge in one sorted buffer
	require.Eventually(t, func() bool {
		snap := store.Snapshot()
		return len(snap.Candles) >= 32 && snap.LastEventID != ""
	}, 5*time.Second, 10*time.Millisecond)

	snap := store.Snapshot()
	for i := 1; i < len(snap.Candles); i++ {
		assert.Greater(t, snap.Candles[i].Timestamp, snap.Candles[i-1].Timestamp,
			"buffer must be strictly ordered by timestamp")
	}
	assert.GreaterOrEqual(t, snap.LatencyMs, int64(0))
	assert.NotEmpty(t, snap.LastSignature)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not shut down")
	}
	assert.Equal(t, model.StatusDisconnected, store.Status())
}
