// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import (
	"context"
	"log/slog"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/internal/platform/validate"
)

// auditRecorder is the slice of the audit recorder the role service needs.
type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service implements role registry operations.
type Service struct {
	store    Store
	registry *Registry
	audit    auditRecorder
	logger   *slog.Logger
}

// NewService creates the role service.
func NewService(store Store, registry *Registry, recorder auditRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		audit:    recorder,
		logger:   logger,
	}
}

// Seed inserts the system roles that do not exist yet, then reloads the
// snapshot. Existing roles are never overwritten, so operator edits to
// non-permission fields survive restarts.
func (service *Service) Seed(ctx context.Context) error {
	for _, seed := range SeedRoles() {
		_, err := service.store.FindByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !apperr.IsCode(err, "NOT_FOUND") {
			return err
		}

		role := seed
		if err := service.store.Insert(ctx, &role); err != nil {
			return err
		}
		service.logger.Info("role_seeded",
			slog.String("name", role.Name),
			slog.Int("level", role.RoleLevel),
		)
	}

	return service.registry.Reload(ctx)
}

// CreateInput is the payload for creating a custom role.
type CreateInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RoleLevel   int      `json:"role_level"`
	Permissions []string `json:"permissions"`
}

/*
Create adds a custom (non-system) role.

The actor may only create roles strictly below their own level; this is what
prevents an admin from minting a role that outranks them.

Returns:
  - *Role: The created role
  - error: Validation, permission, or conflict failure
*/
func (service *Service) Create(ctx context.Context, actor *sec.Principal, input CreateInput) (*Role, error) {
	v := &validate.Validator{}
	v.Required("name", input.Name).
		MaxLen("name", input.Name, 64).
		MaxLen("description", input.Description, 500).
		Range("role_level", input.RoleLevel, 0, LevelSuperAdmin-1).
		Custom("permissions", len(input.Permissions) == 0, "At least one permission is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	permissions, err := parsePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	if input.RoleLevel >= actor.RoleLevel {
		return nil, apperr.Forbidden("Cannot create a role at or above your own level")
	}

	role := &Role{
		Name:         input.Name,
		Description:  input.Description,
		RoleLevel:    input.RoleLevel,
		Permissions:  permissions,
		IsSystemRole: false,
		IsActive:     true,
	}

	if err := service.store.Insert(ctx, role); err != nil {
		return nil, err
	}
	if err := service.registry.Reload(ctx); err != nil {
		return nil, err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionRoleCreated,
		EntityType: audit.EntityRole,
		EntityID:   role.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata: map[string]any{
			"name":  role.Name,
			"level": role.RoleLevel,
		},
	})

	return role, nil
}

// UpdateInput is the payload for updating a custom role.
type UpdateInput struct {
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

/*
Update modifies a custom role's description and permission set.

System roles are immutable through the API, and the actor must outrank the
role being changed.
*/
func (service *Service) Update(ctx context.Context, actor *sec.Principal, roleID string, input UpdateInput) (*Role, error) {
	role, err := service.store.FindByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if role.IsSystemRole {
		return nil, apperr.ProtectedResource("System roles cannot be modified")
	}
	if !actor.CanModerate(role.RoleLevel) {
		return nil, apperr.Forbidden("Cannot modify a role at or above your own level")
	}

	if input.Description != nil {
		v := &validate.Validator{}
		if err := v.MaxLen("description", *input.Description, 500).Err(); err != nil {
			return nil, err
		}
		role.Description = *input.Description
	}
	if input.Permissions != nil {
		permissions, err := parsePermissions(input.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = permissions
	}

	if err := service.store.Update(ctx, role); err != nil {
		return nil, err
	}
	if err := service.registry.Reload(ctx); err != nil {
		return nil, err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionRoleUpdated,
		EntityType: audit.EntityRole,
		EntityID:   role.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"name": role.Name},
	})

	return role, nil
}

/*
Deactivate soft-disables a custom role.

Users referencing a deactivated role resolve to an empty permission set on
their next request (fail-closed); the rows themselves are untouched.
*/
func (service *Service) Deactivate(ctx context.Context, actor *sec.Principal, roleID string) error {
	role, err := service.store.FindByID(ctx, roleID)
	if err != nil {
		return err
	}

	if role.IsSystemRole {
		return apperr.ProtectedResource("System roles cannot be deactivated")
	}
	if !actor.CanModerate(role.RoleLevel) {
		return apperr.Forbidden("Cannot deactivate a role at or above your own level")
	}
	if !role.IsActive {
		// Idempotent: deactivating twice is a no-op.
		return nil
	}

	role.IsActive = false
	if err := service.store.Update(ctx, role); err != nil {
		return err
	}
	if err := service.registry.Reload(ctx); err != nil {
		return err
	}

	service.audit.Record(ctx, audit.Entry{
		ActorID:    actor.UserID,
		Action:     audit.ActionRoleDeactivated,
		EntityType: audit.EntityRole,
		EntityID:   role.ID,
		Outcome:    audit.OutcomeSuccess,
		Metadata:   map[string]any{"name": role.Name},
	})

	return nil
}

// Get returns a role by ID from the snapshot.
func (service *Service) Get(ctx context.Context, id string) (*Role, error) {
	role, ok := service.registry.Get(id)
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	return &role, nil
}

// List returns the active roles ordered by level. Deactivated roles are
// hidden: they remain resolvable for existing holders but cannot be assigned.
func (service *Service) List(ctx context.Context) []Role {
	return service.registry.ListActive()
}

// parsePermissions converts "resource:action" strings into a permission set.
func parsePermissions(raw []string) (sec.PermissionSet, error) {
	permissions := make(sec.PermissionSet, 0, len(raw))
	for _, item := range raw {
		permission, err := sec.ParsePermission(item)
		if err != nil {
			return nil, apperr.ValidationError("Invalid permission",
				apperr.FieldError{Field: "permissions", Message: err.Error()})
		}
		permissions = append(permissions, permission)
	}
	return permissions, nil
}
