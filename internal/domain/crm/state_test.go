package crm

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeState(t *testing.T) {
	t.Run("round trip restores payload", func(t *testing.T) {
		userID := uuid.New()
		before := time.Now()

		token := EncodeState(userID, ProviderHubSpot)
		payload, err := DecodeState(token)
		require.NoError(t, err)

		assert.Equal(t, userID, payload.UserID)
		assert.Equal(t, ProviderHubSpot, payload.Provider)
		assert.False(t, payload.IssuedAtTime().Before(before.Truncate(time.Millisecond)))
		assert.False(t, payload.IssuedAtTime().After(time.Now()))
	})

	t.Run("round trip for every supported provider", func(t *testing.T) {
		userID := uuid.New()
		for _, p := range SupportedProviders() {
			payload, err := DecodeState(EncodeState(userID, p))
			require.NoError(t, err)
			assert.Equal(t, p, payload.Provider)
			assert.Equal(t, userID, payload.UserID)
		}
	})

	t.Run("rejects garbage input", func(t *testing.T) {
		_, err := DecodeState("not base64!!!")
		assert.ErrorIs(t, err, ErrInvalidStateFormat)
	})

	t.Run("rejects valid base64 of non-JSON", func(t *testing.T) {
		token := base64.RawURLEncoding.EncodeToString([]byte("hello"))
		_, err := DecodeState(token)
		assert.ErrorIs(t, err, ErrInvalidStateFormat)
	})

	t.Run("rejects JSON missing fields", func(t *testing.T) {
		token := base64.RawURLEncoding.EncodeToString([]byte(`{"provider":"hubspot"}`))
		_, err := DecodeState(token)
		assert.ErrorIs(t, err, ErrInvalidStateFormat)
	})

	t.Run("accepts padded base64url", func(t *testing.T) {
		raw := `{"userId":"` + uuid.New().String() + `","provider":"attio","timestamp":1700000000000}`
		token := base64.URLEncoding.EncodeToString([]byte(raw))
		payload, err := DecodeState(token)
		require.NoError(t, err)
		assert.Equal(t, ProviderAttio, payload.Provider)
	})
}

func TestStateExpiry(t *testing.T) {
	userID := uuid.New()

	t.Run("fresh state is not expired", func(t *testing.T) {
		payload, err := DecodeState(EncodeState(userID, ProviderSalesforce))
		require.NoError(t, err)
		assert.False(t, payload.Expired(time.Now(), DefaultStateMaxAge))
	})

	t.Run("state older than the window is expired", func(t *testing.T) {
		payload := &StatePayload{
			UserID:   userID,
			Provider: ProviderSalesforce,
			IssuedAt: time.Now().Add(-11 * time.Minute).UnixMilli(),
		}
		assert.True(t, payload.Expired(time.Now(), DefaultStateMaxAge))
	})

	t.Run("state just inside the window is accepted", func(t *testing.T) {
		payload := &StatePayload{
			UserID:   userID,
			Provider: ProviderSalesforce,
			IssuedAt: time.Now().Add(-9 * time.Minute).UnixMilli(),
		}
		assert.False(t, payload.Expired(time.Now(), DefaultStateMaxAge))
	})

	t.Run("expiry checked at a later instant", func(t *testing.T) {
		issued := time.Now()
		payload := &StatePayload{UserID: userID, Provider: ProviderHubSpot, IssuedAt: issued.UnixMilli()}
		assert.True(t, payload.Expired(issued.Add(11*time.Minute), DefaultStateMaxAge))
	})
}
