// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/sec"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestRedisChallengeRepository_RoundTrip(t *testing.T) {
	server, client := newTestRedis(t)
	repository := NewRedisChallengeRepository(client)
	ctx := context.Background()

	challenge := &Challenge{
		ID:       "chal-1",
		UserID:   "user-1",
		Channel:  "email",
		CodeHash: sec.HashToken("123456"),
	}
	require.NoError(t, repository.Put(ctx, challenge, mfaChallengeTTL))

	loaded, err := repository.Get(ctx, "chal-1")
	require.NoError(t, err)
	assert.Equal(t, challenge.UserID, loaded.UserID)
	assert.Equal(t, challenge.CodeHash, loaded.CodeHash)

	// TTL elapses; the challenge is gone.
	server.FastForward(mfaChallengeTTL + time.Second)
	_, err = repository.Get(ctx, "chal-1")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}

func TestRedisChallengeRepository_DeleteIsIdempotent(t *testing.T) {
	_, client := newTestRedis(t)
	repository := NewRedisChallengeRepository(client)
	ctx := context.Background()

	require.NoError(t, repository.Put(ctx, &Challenge{ID: "chal-2"}, time.Minute))
	require.NoError(t, repository.Delete(ctx, "chal-2"))
	require.NoError(t, repository.Delete(ctx, "chal-2"))

	_, err := repository.Get(ctx, "chal-2")
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}

func TestRedisOTPRepository_ConsumeOnce(t *testing.T) {
	_, client := newTestRedis(t)
	repository := NewRedisOTPRepository(client)
	ctx := context.Background()

	codeHash := sec.HashToken("654321")
	require.NoError(t, repository.Put(ctx, "user-1", "email", codeHash, otpTTL))

	ok, err := repository.Consume(ctx, "user-1", "email", codeHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// The code is destroyed on success.
	ok, err = repository.Consume(ctx, "user-1", "email", codeHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisOTPRepository_AttemptExhaustionDestroysCode(t *testing.T) {
	_, client := newTestRedis(t)
	repository := NewRedisOTPRepository(client)
	ctx := context.Background()

	codeHash := sec.HashToken("654321")
	require.NoError(t, repository.Put(ctx, "user-1", "email", codeHash, otpTTL))

	for i := 0; i < otpMaxAttempts; i++ {
		ok, err := repository.Consume(ctx, "user-1", "email", sec.HashToken("000000"))
		require.NoError(t, err)
		assert.False(t, ok)
	}

	// Even the right code fails now.
	ok, err := repository.Consume(ctx, "user-1", "email", codeHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisOTPRepository_ReissueResetsAttempts(t *testing.T) {
	_, client := newTestRedis(t)
	repository := NewRedisOTPRepository(client)
	ctx := context.Background()

	require.NoError(t, repository.Put(ctx, "user-1", "email", sec.HashToken("111111"), otpTTL))
	for i := 0; i < otpMaxAttempts-1; i++ {
		_, err := repository.Consume(ctx, "user-1", "email", sec.HashToken("000000"))
		require.NoError(t, err)
	}

	// A fresh code starts with a clean attempt budget.
	codeHash := sec.HashToken("222222")
	require.NoError(t, repository.Put(ctx, "user-1", "email", codeHash, otpTTL))

	_, err := repository.Consume(ctx, "user-1", "email", sec.HashToken("000000"))
	require.NoError(t, err)

	ok, err := repository.Consume(ctx, "user-1", "email", codeHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisOTPRepository_ConfirmationExpires(t *testing.T) {
	server, client := newTestRedis(t)
	repository := NewRedisOTPRepository(client)
	ctx := context.Background()

	require.NoError(t, repository.MarkConfirmed(ctx, "user-1", "email", otpConfirmationTTL))

	confirmed, err := repository.WasRecentlyConfirmed(ctx, "user-1", "email")
	require.NoError(t, err)
	assert.True(t, confirmed)

	// Other channels are unaffected.
	confirmed, err = repository.WasRecentlyConfirmed(ctx, "user-1", "phone")
	require.NoError(t, err)
	assert.False(t, confirmed)

	server.FastForward(otpConfirmationTTL + time.Second)
	confirmed, err = repository.WasRecentlyConfirmed(ctx, "user-1", "email")
	require.NoError(t, err)
	assert.False(t, confirmed)
}
