// Copyright (c) 2026 TrustFlow. All rights reserved.

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/internal/platform/validate"
)

// CreateInviteInput is the payload for minting an invite code.
type CreateInviteInput struct {
	RoleID  string `json:"role_id"`
	MaxUses int    `json:"max_uses"`

	// TTLHours bounds the code's validity; zero means the default window.
	TTLHours int `json:"ttl_hours,omitempty"`
}

// CreatedInvite carries the one-time plaintext code alongside the stored
// record. The code is not recoverable afterwards.
type CreatedInvite struct {
	Code   string     `json:"code"`
	Invite InviteCode `json:"invite"`
}

/*
CreateInvite mints an invite code granting the given role on registration.

The actor must outrank the role being granted. Only the code's digest is
stored; the plaintext is returned exactly once.
*/
func (service *Service) CreateInvite(ctx context.Context, actor *sec.Principal, input CreateInviteInput) (*CreatedInvite, error) {
	v := &validate.Validator{}
	v.Required("role_id", input.RoleID).
		Range("max_uses", input.MaxUses, 1, 1000)
	if input.TTLHours != 0 {
		v.Range("ttl_hours", input.TTLHours, 1, 24*90)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	role, ok := service.registry.Get(input.RoleID)
	if !ok || !role.IsActive {
		return nil, apperr.NotFound("Role")
	}
	if role.RoleLevel >= actor.RoleLevel {
		return nil, apperr.Forbidden("Cannot invite into a role at or above your own level")
	}

	code, err := sec.GenerateSecureToken(inviteCodeBytes)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ttl := defaultInviteTTL
	if input.TTLHours > 0 {
		ttl = time.Duration(input.TTLHours) * time.Hour
	}

	invite := &InviteCode{
		CodeHash:  sec.HashToken(code),
		RoleID:    input.RoleID,
		CreatedBy: actor.UserID,
		MaxUses:   input.MaxUses,
		IsActive:  true,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := service.invites.Insert(ctx, invite); err != nil {
		return nil, err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionInviteCreated,
		EntityType: audit.EntityInviteCode,
		EntityID:   invite.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"role_id": input.RoleID, "max_uses": input.MaxUses},
	})
	service.logger.Info("invite_created",
		slog.String("invite_id", invite.ID),
		slog.String("role_id", input.RoleID),
	)

	return &CreatedInvite{Code: code, Invite: *invite}, nil
}

// ListInvites returns the invites created by the actor, newest first.
func (service *Service) ListInvites(ctx context.Context, actor *sec.Principal) ([]InviteCode, error) {
	invites, err := service.invites.ListByCreator(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if invites == nil {
		invites = []InviteCode{}
	}
	return invites, nil
}

// DisableInvite deactivates an invite so it can no longer be redeemed.
// Unused budget is forfeited; already-registered accounts are unaffected.
func (service *Service) DisableInvite(ctx context.Context, actor *sec.Principal, inviteID string) error {
	if err := service.invites.Deactivate(ctx, inviteID); err != nil {
		return err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionInviteDisabled,
		EntityType: audit.EntityInviteCode,
		EntityID:   inviteID,
		Outcome:    audit.OutcomeSuccess,
	})
	return nil
}
