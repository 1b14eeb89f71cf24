// Copyright (c) 2026 TrustFlow. All rights reserved.

package sec

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionClaims is the payload of a signed identity assertion.
//
// # Purpose
//
// Session access tokens are opaque and can only be validated by this service.
// After validating one, callers may exchange the resulting [Principal] for a
// short-lived RS256-signed assertion that downstream services verify offline
// with the public key, without a network call back to identity.
type AssertionClaims struct {
	jwt.RegisteredClaims

	// Custom claims are abbreviated to keep the payload small.
	UserID            string        `json:"uid"`
	Email             string        `json:"eml"`
	RoleName          string        `json:"rol"`
	RoleLevel         int           `json:"rlv"`
	VerificationLevel int           `json:"vlv"`
	Permissions       PermissionSet `json:"prm"`
}

// TokenService signs and verifies identity assertions using RS256.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewTokenService creates a TokenService from PEM key files on disk.
func NewTokenService(privateKeyPath, publicKeyPath, issuer string) (*TokenService, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewTokenServiceFromKeys(privateKey, publicKey, issuer), nil
}

// NewTokenServiceFromKeys creates a TokenService from in-memory keys.
// Used by tests and by deployments that load keys from a secret manager.
func NewTokenServiceFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string) *TokenService {
	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
	}
}

// SignAssertion creates a signed assertion for a validated principal.
func (service *TokenService) SignAssertion(principal *Principal, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:            principal.UserID,
		Email:             principal.Email,
		RoleName:          principal.RoleName,
		RoleLevel:         principal.RoleLevel,
		VerificationLevel: principal.VerificationLevel,
		Permissions:       principal.Permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(service.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign assertion: %w", err)
	}

	return signedToken, nil
}

// VerifyAssertion checks the signature and validity of an assertion string.
func (service *TokenService) VerifyAssertion(tokenString string) (*AssertionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AssertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid assertion: %w", err)
	}

	claims, ok := token.Claims.(*AssertionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid assertion claims")
	}

	return claims, nil
}
