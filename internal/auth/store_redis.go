// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/constants"
)

// Redis key layout beyond the shared prefixes in constants.
const (
	otpAttemptsSuffix = ":attempts"
	otpConfirmedKey   = "auth:otp_confirmed:"
)

// # MFA Challenges

// RedisChallengeRepository implements [ChallengeRepository] on Redis.
//
// Challenges are inherently volatile: losing them on a Redis restart only
// forces the user to re-enter their password, which is the safe failure.
type RedisChallengeRepository struct {
	client *redis.Client
}

// NewRedisChallengeRepository creates the Redis-backed challenge repository.
func NewRedisChallengeRepository(client *redis.Client) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client}
}

// Put stores a challenge under its ID for the given TTL.
func (repository *RedisChallengeRepository) Put(ctx context.Context, challenge *Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("redis_challenge_repo_marshal_failed: %w", err)
	}

	key := constants.RedisPrefixMFAChallenge + challenge.ID
	if err := repository.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return apperr.Unavailable("Challenge storage unavailable", err)
	}
	return nil
}

// Get retrieves a challenge, or NotFound after expiry.
func (repository *RedisChallengeRepository) Get(ctx context.Context, id string) (*Challenge, error) {
	key := constants.RedisPrefixMFAChallenge + id

	payload, err := repository.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Challenge")
		}
		return nil, apperr.Unavailable("Challenge storage unavailable", err)
	}

	challenge := &Challenge{}
	if err := json.Unmarshal(payload, challenge); err != nil {
		return nil, fmt.Errorf("redis_challenge_repo_unmarshal_failed: %w", err)
	}
	return challenge, nil
}

// Delete removes a challenge.
func (repository *RedisChallengeRepository) Delete(ctx context.Context, id string) error {
	key := constants.RedisPrefixMFAChallenge + id
	if err := repository.client.Del(ctx, key).Err(); err != nil {
		return apperr.Unavailable("Challenge storage unavailable", err)
	}
	return nil
}

// # One-Time Passwords

// RedisOTPRepository implements [OTPRepository] on Redis.
//
// Only code digests are stored; a Redis snapshot never contains a usable
// code. Attempt counting lives in a sibling key sharing the code's lifetime.
type RedisOTPRepository struct {
	client *redis.Client
}

// NewRedisOTPRepository creates the Redis-backed OTP repository.
func NewRedisOTPRepository(client *redis.Client) *RedisOTPRepository {
	return &RedisOTPRepository{client: client}
}

func otpKey(userID, channel string) string {
	return constants.RedisPrefixOTP + userID + ":" + channel
}

// Put stores the code digest for a user/channel pair, resetting attempts.
func (repository *RedisOTPRepository) Put(ctx context.Context, userID, channel, codeHash string, ttl time.Duration) error {
	key := otpKey(userID, channel)

	pipe := repository.client.TxPipeline()
	pipe.Set(ctx, key, codeHash, ttl)
	pipe.Del(ctx, key+otpAttemptsSuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.Unavailable("OTP storage unavailable", err)
	}
	return nil
}

/*
Consume verifies a code digest and deletes it on success.

A mismatch counts one attempt; when attempts reach the limit the code is
destroyed, so an attacker gets at most otpMaxAttempts guesses per issued
code regardless of request rate.

Returns:
  - bool: true when the code matched
  - error: Storage failure only; a wrong code is (false, nil)
*/
func (repository *RedisOTPRepository) Consume(ctx context.Context, userID, channel, codeHash string) (bool, error) {
	key := otpKey(userID, channel)

	stored, err := repository.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperr.Unavailable("OTP storage unavailable", err)
	}

	if stored != codeHash {
		attempts, err := repository.client.Incr(ctx, key+otpAttemptsSuffix).Result()
		if err != nil {
			return false, apperr.Unavailable("OTP storage unavailable", err)
		}
		_ = repository.client.Expire(ctx, key+otpAttemptsSuffix, otpTTL).Err()

		if attempts >= otpMaxAttempts {
			_ = repository.client.Del(ctx, key, key+otpAttemptsSuffix).Err()
		}
		return false, nil
	}

	if err := repository.client.Del(ctx, key, key+otpAttemptsSuffix).Err(); err != nil {
		return false, apperr.Unavailable("OTP storage unavailable", err)
	}
	return true, nil
}

// MarkConfirmed records that the channel was proven.
func (repository *RedisOTPRepository) MarkConfirmed(ctx context.Context, userID, channel string, ttl time.Duration) error {
	key := otpConfirmedKey + userID + ":" + channel
	if err := repository.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return apperr.Unavailable("OTP storage unavailable", err)
	}
	return nil
}

// WasRecentlyConfirmed implements verification.ChallengeChecker.
func (repository *RedisOTPRepository) WasRecentlyConfirmed(ctx context.Context, userID, channel string) (bool, error) {
	key := otpConfirmedKey + userID + ":" + channel

	exists, err := repository.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperr.Unavailable("OTP storage unavailable", err)
	}
	return exists > 0, nil
}
