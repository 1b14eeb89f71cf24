// Copyright (c) 2026 TrustFlow. All rights reserved.

package roles

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustflow/identity/internal/audit"
	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/sec"
	"github.com/trustflow/identity/pkg/uuidv7"
)

// memoryStore is an in-memory Store for service tests.
type memoryStore struct {
	mu    sync.Mutex
	roles map[string]*Role
}

func newMemoryStore() *memoryStore {
	return &memoryStore{roles: map[string]*Role{}}
}

func (s *memoryStore) Insert(_ context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == role.Name {
			return apperr.Conflict("A role with this name already exists")
		}
	}
	if role.ID == "" {
		role.ID = uuidv7.New()
	}
	clone := *role
	s.roles[role.ID] = &clone
	return nil
}

func (s *memoryStore) Update(_ context.Context, role *Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; !ok {
		return apperr.NotFound("Role")
	}
	clone := *role
	s.roles[role.ID] = &clone
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (*Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	clone := *role
	return &clone, nil
}

func (s *memoryStore) FindByName(_ context.Context, name string) (*Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.roles {
		if role.Name == name {
			clone := *role
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Role")
}

func (s *memoryStore) ListAll(_ context.Context) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []Role
	for _, role := range s.roles {
		all = append(all, *role)
	}
	return all, nil
}

// captureRecorder records audit entries synchronously for assertions.
type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *captureRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var actions []string
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func newTestService(t *testing.T) (*Service, *memoryStore, *captureRecorder) {
	t.Helper()
	store := newMemoryStore()
	registry := NewRegistry(store)
	recorder := &captureRecorder{}
	service := NewService(store, registry, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, service.Seed(context.Background()))
	return service, store, recorder
}

func adminPrincipal() *sec.Principal {
	return &sec.Principal{
		UserID:    uuidv7.New(),
		RoleName:  RoleAdmin,
		RoleLevel: LevelAdmin,
		Permissions: sec.PermissionSet{
			{Resource: "roles", Action: sec.Wildcard},
		},
	}
}

func TestSeed_CreatesSystemRolesOnce(t *testing.T) {
	service, store, _ := newTestService(t)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 6)

	// Second seed run must not duplicate or overwrite.
	require.NoError(t, service.Seed(context.Background()))
	all, err = store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 6)

	superadmin, ok := service.registry.GetByName(RoleSuperAdmin)
	require.True(t, ok)
	assert.True(t, superadmin.IsSystemRole)
	assert.True(t, superadmin.Permissions.Allows("anything", "at-all"))
}

func TestCreate_CustomRole(t *testing.T) {
	service, _, recorder := newTestService(t)

	role, err := service.Create(context.Background(), adminPrincipal(), CreateInput{
		Name:        "SUPPORT",
		Description: "Customer support agent",
		RoleLevel:   30,
		Permissions: []string{"users:read", "orders:read"},
	})
	require.NoError(t, err)
	assert.False(t, role.IsSystemRole)
	assert.True(t, role.Permissions.Allows("users", "read"))
	assert.False(t, role.Permissions.Allows("users", "suspend"))

	// Registry snapshot reflects the new role immediately.
	cached, ok := service.registry.GetByName("SUPPORT")
	require.True(t, ok)
	assert.Equal(t, role.ID, cached.ID)

	assert.Contains(t, recorder.actions(), audit.ActionRoleCreated)
}

func TestCreate_RejectsLevelAtOrAboveActor(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Create(context.Background(), adminPrincipal(), CreateInput{
		Name:        "SHADOW_ADMIN",
		RoleLevel:   LevelAdmin,
		Permissions: []string{"roles:manage"},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "FORBIDDEN"))
}

func TestCreate_RejectsDuplicateName(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Create(context.Background(), adminPrincipal(), CreateInput{
		Name:        RoleBuyer,
		RoleLevel:   10,
		Permissions: []string{"catalog:read"},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "CONFLICT"))
}

func TestCreate_RejectsMalformedPermission(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Create(context.Background(), adminPrincipal(), CreateInput{
		Name:        "BROKEN",
		RoleLevel:   10,
		Permissions: []string{"no-separator"},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
}

func TestUpdate_SystemRoleIsProtected(t *testing.T) {
	service, _, _ := newTestService(t)

	buyer, ok := service.registry.GetByName(RoleBuyer)
	require.True(t, ok)

	_, err := service.Update(context.Background(), adminPrincipal(), buyer.ID, UpdateInput{
		Permissions: []string{"catalog:read"},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "PROTECTED_RESOURCE"))
}

func TestDeactivate_FailClosedResolution(t *testing.T) {
	service, _, recorder := newTestService(t)
	actor := adminPrincipal()

	role, err := service.Create(context.Background(), actor, CreateInput{
		Name:        "TEMP",
		RoleLevel:   10,
		Permissions: []string{"catalog:read"},
	})
	require.NoError(t, err)

	resolver := NewResolver(service.registry)
	_, permissions := resolver.Resolve(role.ID)
	assert.True(t, permissions.Allows("catalog", "read"))

	require.NoError(t, service.Deactivate(context.Background(), actor, role.ID))

	// A deactivated role must resolve to no permissions at all.
	_, permissions = resolver.Resolve(role.ID)
	assert.False(t, permissions.Allows("catalog", "read"))
	assert.Empty(t, permissions)

	// Idempotent second call.
	require.NoError(t, service.Deactivate(context.Background(), actor, role.ID))

	assert.Contains(t, recorder.actions(), audit.ActionRoleDeactivated)
}

func TestList_HidesDeactivatedRoles(t *testing.T) {
	service, _, _ := newTestService(t)
	actor := adminPrincipal()

	role, err := service.Create(context.Background(), actor, CreateInput{
		Name:        "SEASONAL",
		RoleLevel:   10,
		Permissions: []string{"catalog:read"},
	})
	require.NoError(t, err)

	names := func() []string {
		var out []string
		for _, listed := range service.List(context.Background()) {
			out = append(out, listed.Name)
		}
		return out
	}
	assert.Contains(t, names(), "SEASONAL")

	require.NoError(t, service.Deactivate(context.Background(), actor, role.ID))

	// Deactivation removes the role from listings, but existing holders can
	// still look it up by ID.
	assert.NotContains(t, names(), "SEASONAL")
	got, err := service.Get(context.Background(), role.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeactivate_SystemRoleIsProtected(t *testing.T) {
	service, _, _ := newTestService(t)

	guest, ok := service.registry.GetByName(RoleGuest)
	require.True(t, ok)

	err := service.Deactivate(context.Background(), adminPrincipal(), guest.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "PROTECTED_RESOURCE"))
}

func TestResolver_UnknownRoleDeniesEverything(t *testing.T) {
	service, _, _ := newTestService(t)
	resolver := NewResolver(service.registry)

	_, permissions := resolver.Resolve("does-not-exist")
	assert.Empty(t, permissions)
	assert.False(t, permissions.Allows(sec.Wildcard, sec.Wildcard))
}

func TestResolver_LegacyNameFallback(t *testing.T) {
	service, _, _ := newTestService(t)
	resolver := NewResolver(service.registry)

	role, permissions := resolver.ResolveByName(RoleModerator)
	assert.Equal(t, LevelModerator, role.RoleLevel)
	assert.True(t, permissions.Allows("verifications", "decide"))
}
