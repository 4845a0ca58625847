package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/market-sandbox/internal/domain/model"
)

func newTestSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	s, err := New(secret, false, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNew_SecretPolicy(t *testing.T) {
	t.Run("missing secret is fatal in production", func(t *testing.T) {
		_, err := New("", true, zerolog.Nop())
		assert.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("configured secret is used in production", func(t *testing.T) {
		s, err := New("prod-secret", true, zerolog.Nop())
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("ephemeral secret outside production", func(t *testing.T) {
		a, err := New("", false, zerolog.Nop())
		require.NoError(t, err)
		b, err := New("", false, zerolog.Nop())
		require.NoError(t, err)
		// two processes must not share an implicit secret
		assert.NotEqual(t, a.Sign([]byte("x")), b.Sign([]byte("x")))
	})
}

func TestBuildEnvelope_SignatureVerifies(t *testing.T) {
	s := newTestSigner(t, "fixed-test-secret")

	env, err := s.BuildEnvelope(model.EventCandles, model.CandleTick{
		CandleSnapshot: model.CandleSnapshot{
			Price: 68123.45, Open: 68120.00, High: 68130.10, Low: 68110.90,
			Volume: 412.33, Timestamp: 1700000000000,
		},
		Sequence: 7, Change: 3.45, ChangePercent: 0.01,
	})
	require.NoError(t, err)

	assert.Equal(t, model.EnvelopeSource, env.Source)
	assert.NotZero(t, env.TS)
	require.NotEmpty(t, env.Signature)

	ok, err := s.Verify(env)
	require.NoError(t, err)
	assert.True(t, ok)

	// independent recomputation against the canonical bytes
	canon, err := Canonical(env)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte("fixed-test-secret"))
	mac.Write(canon)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), env.Signature)
}

func TestVerify_TamperedDataFails(t *testing.T) {
	s := newTestSigner(t, "fixed-test-secret")

	env, err := s.BuildEnvelope(model.EventCandles, map[string]any{"price": 100.0, "sequence": 1})
	require.NoError(t, err)

	tampered := env
	tampered.Data = map[string]any{"price": 100.01, "sequence": 1}
	ok, err := s.Verify(tampered)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Verify(env)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_SurvivesWireRoundTrip(t *testing.T) {
	// The client decodes the envelope into generic maps; re-verification must
	// still produce identical canonical bytes.
	s := newTestSigner(t, "fixed-test-secret")

	env, err := s.BuildEnvelope(model.EventCandles, model.CandleTick{
		CandleSnapshot: model.CandleSnapshot{Price: 68100.25, Open: 68099.75, High: 68111.01, Low: 68090.44, Volume: 305.5, Timestamp: 1700000001000},
		Sequence:       12, Change: 0.5, ChangePercent: 0.0,
	})
	require.NoError(t, err)

	wire, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded model.Envelope
	require.NoError(t, json.Unmarshal(wire, &decoded))

	ok, err := s.Verify(decoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	signer := newTestSigner(t, "secret-a")
	other := newTestSigner(t, "secret-b")

	env, err := signer.BuildEnvelope(model.EventReady, map[string]any{"resumeSequence": 0})
	require.NoError(t, err)

	ok, err := other.Verify(env)
	require.NoError(t, err)
	assert.False(t, ok)
}
