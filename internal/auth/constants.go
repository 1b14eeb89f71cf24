// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import "time"

// Token shape.
const (
	// accessTokenBytes and refreshTokenBytes size the random tokens before
	// base64url encoding. 32 bytes gives 256 bits of entropy.
	accessTokenBytes  = 32
	refreshTokenBytes = 32

	// inviteCodeBytes sizes invite codes; shorter because they are
	// single-purpose and rate-limited.
	inviteCodeBytes = 16

	// otpDigits is the length of one-time passwords sent over email/SMS.
	otpDigits = 6
)

// Volatile state lifetimes.
const (
	// mfaChallengeTTL bounds how long a login may sit between password and OTP.
	mfaChallengeTTL = 5 * time.Minute

	// otpTTL bounds code validity.
	otpTTL = 10 * time.Minute

	// otpConfirmationTTL is how long a confirmed channel counts as "recently
	// confirmed" for automatic verification.
	otpConfirmationTTL = 15 * time.Minute

	// otpMaxAttempts bounds guesses per issued code.
	otpMaxAttempts = 5
)

// Store interaction bounds.
const (
	// lookupTimeout caps every storage round trip on the hot validation
	// path. Hitting it surfaces as UNAVAILABLE (retryable), never as a
	// silent hang.
	lookupTimeout = 3 * time.Second

	// defaultInviteTTL is the validity window for new invite codes.
	defaultInviteTTL = 14 * 24 * time.Hour
)
