// Copyright (c) 2026 TrustFlow. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// # Opaque Tokens

// GenerateSecureToken returns a cryptographically random, URL-safe opaque
// string of the given entropy (in bytes).
//
// Tokens carry no decodable structure. They are validated exclusively by
// digest lookup against stored sessions.
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex-encoded SHA-256 digest of an opaque token.
//
// # Why hashing, not encryption?
//
// Tokens are never recovered, only validated. Storing one-way digests means a
// leaked sessions table cannot be replayed. Lookup by the full fixed-length
// digest also avoids timing side channels: the database compares 32-byte
// digests, never raw secret prefixes.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateOTP returns a random numeric one-time password of the given length,
// suitable for SMS/email multi-factor challenges.
func GenerateOTP(digits int) (string, error) {
	const numerals = "0123456789"
	buf := make([]byte, digits)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate otp: %w", err)
	}
	for i := range buf {
		buf[i] = numerals[int(buf[i])%len(numerals)]
	}
	return string(buf), nil
}
