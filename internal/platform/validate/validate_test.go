// Copyright (c) 2026 TrustFlow. All rights reserved.

package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow/identity/internal/platform/apperr"
)

func TestValidator_AllRulesPass(t *testing.T) {
	v := &Validator{}
	err := v.
		Required("email", "user@trustflow.app").
		Email("email", "user@trustflow.app").
		Password("password", "Str0ngPass").
		Phone("phone", "+2348012345678").
		Range("level", 2, 0, 4).
		OneOf("method", "EMAIL", "EMAIL", "PHONE", "DOCUMENT").
		Err()

	assert.NoError(t, err)
}

func TestValidator_CollectsMultipleFailures(t *testing.T) {
	v := &Validator{}
	err := v.
		Required("email", "  ").
		Password("password", "short").
		Range("level", 9, 0, 4).
		Err()

	require.Error(t, err)

	var appError *apperr.AppError
	require.True(t, errors.As(err, &appError))
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
	assert.Len(t, appError.Details, 3)
}

func TestValidator_Email(t *testing.T) {
	cases := []struct {
		name  string
		input string
		valid bool
	}{
		{"plain address", "a@b.co", true},
		{"with display name rejected by policy", "not-an-email", false},
		{"missing domain", "user@", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.Email("email", tc.input).Err()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidator_Phone(t *testing.T) {
	valid := []string{"+2348012345678", "+14155552671", "+818012345678"}
	for _, number := range valid {
		v := &Validator{}
		assert.NoError(t, v.Phone("phone", number).Err(), number)
	}

	invalid := []string{"08012345678", "+0123", "++234801", "+1 415 555", ""}
	for _, number := range invalid {
		v := &Validator{}
		assert.Error(t, v.Phone("phone", number).Err(), number)
	}
}

func TestValidator_Password(t *testing.T) {
	cases := []struct {
		name  string
		input string
		valid bool
	}{
		{"meets policy", "Passw0rd", true},
		{"too short", "P4ss", false},
		{"no digit", "Password", false},
		{"no upper", "passw0rd", false},
		{"no lower", "PASSW0RD", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.Password("password", tc.input).Err()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidator_UUID(t *testing.T) {
	v := &Validator{}
	assert.NoError(t, v.UUID("id", "0191b2c3-d4e5-7f60-8a9b-0c1d2e3f4a5b").Err())

	v = &Validator{}
	assert.Error(t, v.UUID("id", "not-a-uuid").Err())
}

func TestValidator_Custom(t *testing.T) {
	v := &Validator{}
	err := v.Custom("target_level", true, "Must be exactly one above the current level").Err()

	require.Error(t, err)
	var appError *apperr.AppError
	require.True(t, errors.As(err, &appError))
	assert.Equal(t, "target_level", appError.Details[0].Field)
}
