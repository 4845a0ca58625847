// Package signing wraps event payloads in tamper-evident envelopes.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/driftline/market-sandbox/internal/domain/model"
)

// ErrMissingSecret is returned when no signing secret is configured in a
// production deployment. Emitting unsigned or weakly signed payloads is never
// acceptable, so this aborts startup.
var ErrMissingSecret = errors.New("signing: STREAM_SIGNING_SECRET is required in production")

// Signer computes HMAC-SHA256 signatures over canonical envelope JSON.
type Signer struct {
	key []byte
}

// New resolves the signing secret. A configured secret is always used as-is.
// Without one, production fails fast; other modes generate a random ephemeral
// secret, so signatures only verify within this process lifetime.
func New(secret string, production bool, log zerolog.Logger) (*Signer, error) {
	if secret == "" {
		if production {
			return nil, ErrMissingSecret
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("signing: generate ephemeral secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		log.Warn().Msg("no signing secret configured, using ephemeral secret for this process")
	}
	return &Signer{key: []byte(secret)}, nil
}

// Sign returns the hex-encoded HMAC-SHA256 of the payload.
func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignJSON serializes v and signs the result.
func (s *Signer) SignJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("signing: marshal payload: %w", err)
	}
	return s.Sign(raw), nil
}

// BuildEnvelope assembles a signed envelope around the payload, timestamped
// at signing time.
func (s *Signer) BuildEnvelope(event string, data any) (model.Envelope, error) {
	env := model.Envelope{
		Event:  event,
		Data:   data,
		TS:     time.Now().UnixMilli(),
		Source: model.EnvelopeSource,
	}
	canon, err := Canonical(env)
	if err != nil {
		return model.Envelope{}, err
	}
	env.Signature = s.Sign(canon)
	return env, nil
}

// Verify recomputes the canonical signature and compares it in constant time.
func (s *Signer) Verify(env model.Envelope) (bool, error) {
	canon, err := Canonical(env)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(s.Sign(canon)), []byte(env.Signature)), nil
}

// Canonical serializes {event, data, ts, source} for signing. The data
// payload is normalized through a JSON round trip first: maps marshal with
// sorted keys, so the server (signing a struct) and a client (re-signing the
// decoded map) produce byte-identical serializations.
func Canonical(env model.Envelope) ([]byte, error) {
	raw, err := json.Marshal(env.Data)
	if err != nil {
		return nil, fmt.Errorf("signing: marshal data: %w", err)
	}
	var norm any
	if err := json.Unmarshal(raw, &norm); err != nil {
		return nil, fmt.Errorf("signing: normalize data: %w", err)
	}

	return json.Marshal(struct {
		Event  string `json:"event"`
		Data   any    `json:"data"`
		TS     int64  `json:"ts"`
		Source string `json:"source"`
	}{env.Event, norm, env.TS, env.Source})
}
