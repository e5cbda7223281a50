package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"teamboard/api/internal/docstore"
	"teamboard/api/internal/rbac"
	"teamboard/api/internal/store"
)

// RolePatch carries the fields an update may change; nil means "leave as is".
type RolePatch struct {
	Name        *string
	Permissions []string
	Color       *string
}

// CreateCustomRole creates a user-defined role. Deliberately no permission
// gate beyond a resolvable caller: any team participant may manage custom
// roles.
func (s *Service) CreateCustomRole(ctx context.Context, teamID, name string, permissions []string, color string) (store.Role, error) {
	if strings.TrimSpace(name) == "" {
		return store.Role{}, validationError("Role name is required")
	}
	if permissions == nil {
		permissions = []string{}
	}

	role, err := s.store.CreateRole(ctx, teamID, store.Role{
		Name:        strings.TrimSpace(name),
		Permissions: permissions,
		IsCustom:    true,
		IsDefault:   false,
		Color:       color,
	})
	if err != nil {
		return store.Role{}, persistenceError("create role", err)
	}
	return role, nil
}

// UpdateRole merges the present patch fields into a custom role. Default
// roles are immutable; the acting user must hold a membership record.
func (s *Service) UpdateRole(ctx context.Context, teamID, roleID string, patch RolePatch, actingUserID string) (store.Role, error) {
	role, err := s.store.GetRole(ctx, teamID, roleID)
	if errors.Is(err, docstore.ErrNotFound) {
		return store.Role{}, notFoundError("Role not found")
	}
	if err != nil {
		return store.Role{}, persistenceError("get role", err)
	}
	if role.IsDefault {
		return store.Role{}, immutableDefaultError()
	}

	membership, err := s.membershipByUser(ctx, teamID, actingUserID)
	if err != nil {
		return store.Role{}, err
	}
	if membership == nil {
		return store.Role{}, notAMemberError("Only team members can manage roles")
	}

	update := map[string]any{}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return store.Role{}, validationError("Role name is required")
		}
		update["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Permissions != nil {
		update["permissions"] = patch.Permissions
	}
	if patch.Color != nil {
		update["color"] = *patch.Color
	}
	if len(update) == 0 {
		return role, nil
	}

	updated, err := s.store.UpdateRole(ctx, teamID, roleID, update)
	if err != nil {
		return store.Role{}, persistenceError("update role", err)
	}
	return updated, nil
}

// DeleteRole removes a custom role. Fails while any membership still
// references it; callers must reassign those members first.
func (s *Service) DeleteRole(ctx context.Context, teamID, roleID, actingUserID string) error {
	role, err := s.store.GetRole(ctx, teamID, roleID)
	if errors.Is(err, docstore.ErrNotFound) {
		return notFoundError("Role not found")
	}
	if err != nil {
		return persistenceError("get role", err)
	}
	if role.IsDefault {
		return immutableDefaultError()
	}

	membership, err := s.membershipByUser(ctx, teamID, actingUserID)
	if err != nil {
		return err
	}
	if membership == nil {
		return notAMemberError("Only team members can manage roles")
	}

	bound, err := s.store.MembershipsByRole(ctx, teamID, roleID)
	if err != nil {
		return persistenceError("check role usage", err)
	}
	if len(bound) > 0 {
		return roleInUseError()
	}

	if err := s.store.DeleteRole(ctx, teamID, roleID); err != nil {
		return persistenceError("delete role", err)
	}
	return nil
}

// ListRoles returns the team's non-deleted roles after running the
// default-role de-duplication pass, so readers never observe duplicate
// Owner or Member roles even when storage is corrupt.
func (s *Service) ListRoles(ctx context.Context, teamID string) ([]store.Role, error) {
	roles, err := s.store.ListRoles(ctx, teamID)
	if err != nil {
		return nil, persistenceError("list roles", err)
	}

	recon := rbac.ReconcileDefaults(roleRecords(roles))
	if !recon.Clean() {
		s.repairDefaults(ctx, teamID, recon)
		roles, err = s.store.ListRoles(ctx, teamID)
		if err != nil {
			return nil, persistenceError("list roles", err)
		}
	}

	visible := make([]store.Role, 0, len(roles))
	for _, role := range roles {
		if !role.Deleted {
			visible = append(visible, role)
		}
	}
	return visible, nil
}

// BootstrapDefaultRoles provisions or repairs the Owner and Member roles.
// Idempotent: repeated runs converge on exactly one non-deleted default of
// each name.
func (s *Service) BootstrapDefaultRoles(ctx context.Context, teamID string) error {
	roles, err := s.store.ListRoles(ctx, teamID)
	if err != nil {
		return persistenceError("list roles", err)
	}

	recon := rbac.ReconcileDefaults(roleRecords(roles))
	if !recon.Clean() {
		s.repairDefaults(ctx, teamID, recon)
	}

	if !recon.HasOwner() {
		if _, err := s.store.CreateRole(ctx, teamID, store.Role{
			Name:        rbac.RoleOwner,
			Permissions: rbac.Maximal(),
			IsDefault:   true,
		}); err != nil {
			return persistenceError("create owner role", err)
		}
	}
	if !recon.HasMember() {
		if _, err := s.store.CreateRole(ctx, teamID, store.Role{
			Name:        rbac.RoleMember,
			Permissions: []string{},
			IsDefault:   true,
		}); err != nil {
			return persistenceError("create member role", err)
		}
	}

	// Force retained defaults back to canonical permission sets. The read
	// path self-heals, so a failed write here is logged, not fatal.
	if recon.HasOwner() {
		s.forcePermissions(ctx, teamID, recon.OwnerID, rbac.Maximal(), roles)
	}
	if recon.HasMember() {
		s.forcePermissions(ctx, teamID, recon.MemberID, []string{}, roles)
	}
	return nil
}

func (s *Service) forcePermissions(ctx context.Context, teamID, roleID string, canonical []string, roles []store.Role) {
	for _, role := range roles {
		if role.ID != roleID {
			continue
		}
		if samePermissions(role.Permissions, canonical) {
			return
		}
		if _, err := s.store.UpdateRole(ctx, teamID, roleID, map[string]any{"permissions": canonical}); err != nil {
			log.Printf("roles: force canonical permissions on %s: %v", roleID, err)
		}
		return
	}
}

// repairDefaults retires duplicate default roles: memberships bound to a
// discarded duplicate are re-pointed to the retained canonical role first,
// then the duplicate is soft-deleted (hard delete only if the soft-delete
// write fails). All failures are logged; repair is opportunistic.
func (s *Service) repairDefaults(ctx context.Context, teamID string, recon rbac.Reconciliation) {
	for _, discardID := range recon.DiscardIDs {
		keepID := recon.RepointTo[discardID]

		bound, err := s.store.MembershipsByRole(ctx, teamID, discardID)
		if err != nil {
			log.Printf("roles: load memberships for duplicate role %s: %v", discardID, err)
			continue
		}
		repointed := true
		for _, membership := range bound {
			if _, err := s.store.UpdateMembership(ctx, teamID, membership.ID, map[string]any{"roleId": keepID}); err != nil {
				log.Printf("roles: repoint membership %s to %s: %v", membership.ID, keepID, err)
				repointed = false
			}
		}
		if !repointed {
			// Leave the duplicate in place rather than orphan memberships.
			continue
		}

		if _, err := s.store.UpdateRole(ctx, teamID, discardID, map[string]any{"deleted": true}); err != nil {
			log.Printf("roles: soft-delete duplicate role %s: %v", discardID, err)
			if err := s.store.DeleteRole(ctx, teamID, discardID); err != nil {
				log.Printf("roles: hard-delete duplicate role %s: %v", discardID, err)
				continue
			}
		}
		s.telemetry.Emit("default_role_duplicate_retired", map[string]any{
			"teamId":   teamID,
			"roleId":   discardID,
			"keptId":   keepID,
			"repoints": len(bound),
		})
	}
}

// ResolveOwnerRole returns the canonical Owner role. The returned permission
// set is always the canonical maximal set: if storage drifted, the copy is
// corrected in memory and a secondary persistence attempt is made that may
// legitimately fail (access rules can block cross-team writes), so callers
// must treat the returned permissions as authoritative.
func (s *Service) ResolveOwnerRole(ctx context.Context, teamID string) (store.Role, error) {
	role, err := s.resolveDefault(ctx, teamID, rbac.RoleOwner)
	if err != nil {
		return store.Role{}, err
	}
	if !rbac.IsMaximal(role.Permissions) {
		if _, err := s.store.UpdateRole(ctx, teamID, role.ID, map[string]any{"permissions": rbac.Maximal()}); err != nil {
			log.Printf("roles: persist owner permission correction for team %s: %v", teamID, err)
		}
		role.Permissions = rbac.Maximal()
	}
	return role, nil
}

// ResolveMemberRole returns the canonical Member role. The empty permission
// set is definitionally correct, so no correction applies.
func (s *Service) ResolveMemberRole(ctx context.Context, teamID string) (store.Role, error) {
	return s.resolveDefault(ctx, teamID, rbac.RoleMember)
}

func (s *Service) resolveDefault(ctx context.Context, teamID, name string) (store.Role, error) {
	roles, err := s.store.ListRoles(ctx, teamID)
	if err != nil {
		return store.Role{}, persistenceError("list roles", err)
	}

	recon := rbac.ReconcileDefaults(roleRecords(roles))
	wantID := recon.OwnerID
	if name == rbac.RoleMember {
		wantID = recon.MemberID
	}
	if wantID == "" {
		return store.Role{}, notFoundError(fmt.Sprintf("%s role not found", name))
	}
	for _, role := range roles {
		if role.ID == wantID {
			return role, nil
		}
	}
	return store.Role{}, notFoundError(fmt.Sprintf("%s role not found", name))
}

// GetUserPermissions resolves the permission set a user holds in a team.
// Users without a membership record get the empty set. A user bound to the
// default Owner role always gets the canonical maximal set, regardless of
// what is durably stored for that role.
func (s *Service) GetUserPermissions(ctx context.Context, userID, teamID string) ([]string, error) {
	membership, err := s.membershipByUser(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return []string{}, nil
	}

	role, err := s.store.GetRole(ctx, teamID, membership.RoleID)
	if errors.Is(err, docstore.ErrNotFound) {
		log.Printf("roles: membership %s references missing role %s", membership.ID, membership.RoleID)
		return []string{}, nil
	}
	if err != nil {
		return nil, persistenceError("get role", err)
	}

	if role.IsDefault && role.Name == rbac.RoleOwner {
		return rbac.Maximal(), nil
	}
	return role.Permissions, nil
}

// UserHasPermission is a convenience wrapper over GetUserPermissions.
func (s *Service) UserHasPermission(ctx context.Context, userID, teamID, permission string) (bool, error) {
	perms, err := s.GetUserPermissions(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	return contains(perms, permission), nil
}

func roleRecords(roles []store.Role) []rbac.RoleRecord {
	records := make([]rbac.RoleRecord, len(roles))
	for i, role := range roles {
		records[i] = rbac.RoleRecord{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
			IsDefault:   role.IsDefault,
			Deleted:     role.Deleted,
			CreatedAt:   role.CreatedAt,
		}
	}
	return records
}

func samePermissions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, perm := range a {
		set[perm] = true
	}
	for _, perm := range b {
		if !set[perm] {
			return false
		}
	}
	return true
}
