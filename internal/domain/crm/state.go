package crm

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultStateMaxAge is how long an OAuth state token stays valid
const DefaultStateMaxAge = 10 * time.Minute

// StatePayload is the CSRF nonce carried through the OAuth redirect.
// The token is an unsigned base64url-encoded JSON document; its integrity
// guarantee comes from being mirrored byte-for-byte in an http-only cookie,
// not from a MAC.
type StatePayload struct {
	UserID   uuid.UUID `json:"userId"`
	Provider Provider  `json:"provider"`
	// IssuedAt is a unix timestamp in milliseconds
	IssuedAt int64 `json:"timestamp"`
}

// EncodeState mints a state token for the given user and provider
func EncodeState(userID uuid.UUID, provider Provider) string {
	payload := StatePayload{
		UserID:   userID,
		Provider: provider,
		IssuedAt: time.Now().UnixMilli(),
	}
	raw, _ := json.Marshal(payload)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeState parses a state token, returning ErrInvalidStateFormat on any
// malformed input
func DecodeState(token string) (*StatePayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate padded variants produced by other encoders
		raw, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil, ErrInvalidStateFormat
		}
	}

	var payload StatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrInvalidStateFormat
	}
	if payload.UserID == uuid.Nil || payload.Provider == "" || payload.IssuedAt == 0 {
		return nil, ErrInvalidStateFormat
	}
	return &payload, nil
}

// IssuedAtTime returns the issue timestamp as a time.Time
func (p *StatePayload) IssuedAtTime() time.Time {
	return time.UnixMilli(p.IssuedAt)
}

// Expired reports whether the payload is older than maxAge at the given instant
func (p *StatePayload) Expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.IssuedAtTime()) > maxAge
}
