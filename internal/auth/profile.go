// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"

	"github.com/trustflow/identity/internal/platform/validate"
	"github.com/trustflow/identity/pkg/pointer"
)

// Me bundles the account and profile views returned to the owning user.
type Me struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile"`
}

// GetMe returns the caller's account and profile.
func (service *Service) GetMe(ctx context.Context, userID string) (*Me, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := service.users.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Me{User: user, Profile: profile}, nil
}

// UpdateProfileInput carries partial profile changes; nil fields are kept.
type UpdateProfileInput struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// UpdateProfile applies a partial update to the caller's profile.
func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*Profile, error) {
	v := &validate.Validator{}
	v.MaxLen("first_name", pointer.Val(input.FirstName), 100).
		MaxLen("last_name", pointer.Val(input.LastName), 100).
		MaxLen("display_name", pointer.Val(input.DisplayName), 120).
		MaxLen("avatar_url", pointer.Val(input.AvatarURL), 500)
	if input.Country != nil {
		v.Custom("country", len(*input.Country) != 2, "Must be an ISO 3166-1 alpha-2 code")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	profile, err := service.users.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.FirstName = pointer.Fallback(input.FirstName, profile.FirstName)
	profile.LastName = pointer.Fallback(input.LastName, profile.LastName)
	profile.DisplayName = pointer.Fallback(input.DisplayName, profile.DisplayName)
	profile.AvatarURL = pointer.Fallback(input.AvatarURL, profile.AvatarURL)
	profile.Country = pointer.Fallback(input.Country, profile.Country)

	if err := service.users.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
