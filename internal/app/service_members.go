package app

import (
	"context"
	"errors"
	"log"

	"teamboard/api/internal/docstore"
	"teamboard/api/internal/membercache"
	"teamboard/api/internal/store"
)

// The membership ledger: one record binds one user to one role within one
// team. The document store enforces no uniqueness on (team, user), so every
// write path here queries first.

func (s *Service) addMembership(ctx context.Context, teamID, userID, roleID, addedBy string) (store.Membership, error) {
	membership, err := s.store.CreateMembership(ctx, teamID, store.Membership{
		UserID:  userID,
		RoleID:  roleID,
		AddedBy: addedBy,
	})
	if err != nil {
		return store.Membership{}, persistenceError("create membership", err)
	}
	return membership, nil
}

// membershipByUser returns the user's membership record or nil. More than
// one match is a data-integrity problem, reported but not fatal: the first
// record wins.
func (s *Service) membershipByUser(ctx context.Context, teamID, userID string) (*store.Membership, error) {
	memberships, err := s.store.MembershipsByUser(ctx, teamID, userID)
	if err != nil {
		return nil, persistenceError("lookup membership", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	if len(memberships) > 1 {
		log.Printf("members: user %s has %d membership records in team %s", userID, len(memberships), teamID)
		s.telemetry.Emit("duplicate_membership_detected", map[string]any{
			"teamId": teamID,
			"userId": userID,
			"count":  len(memberships),
		})
	}
	return &memberships[0], nil
}

// MembershipsByRole lists the membership records bound to one role.
func (s *Service) MembershipsByRole(ctx context.Context, teamID, roleID string) ([]store.Membership, error) {
	memberships, err := s.store.MembershipsByRole(ctx, teamID, roleID)
	if err != nil {
		return nil, persistenceError("lookup memberships by role", err)
	}
	return memberships, nil
}

// reassignRole points the user's membership at a new role, creating the
// record when it does not exist yet.
func (s *Service) reassignRole(ctx context.Context, teamID, userID, newRoleID, assignedBy string) error {
	membership, err := s.membershipByUser(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		_, err := s.addMembership(ctx, teamID, userID, newRoleID, assignedBy)
		return err
	}
	if _, err := s.store.UpdateMembership(ctx, teamID, membership.ID, map[string]any{"roleId": newRoleID}); err != nil {
		return persistenceError("update membership", err)
	}
	return nil
}

// removeMembership deletes the user's membership records. A missing record
// is already-consistent state, not an error.
func (s *Service) removeMembership(ctx context.Context, teamID, userID string) error {
	memberships, err := s.store.MembershipsByUser(ctx, teamID, userID)
	if err != nil {
		return persistenceError("lookup membership", err)
	}
	for _, membership := range memberships {
		if err := s.store.DeleteMembership(ctx, teamID, membership.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return persistenceError("delete membership", err)
		}
	}
	return nil
}

// TeamMembers returns display info for every member, served from the Redis
// cache when possible. Cache failures degrade to a store read.
func (s *Service) TeamMembers(ctx context.Context, teamID string) ([]membercache.MemberInfo, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, teamID)
		if err != nil {
			log.Printf("membercache: get team %s: %v", teamID, err)
		} else if hit {
			return cached, nil
		}
	}

	if _, err := s.store.GetTeam(ctx, teamID); errors.Is(err, docstore.ErrNotFound) {
		return nil, notFoundError("Team not found")
	} else if err != nil {
		return nil, persistenceError("get team", err)
	}

	memberships, err := s.store.ListMemberships(ctx, teamID)
	if err != nil {
		return nil, persistenceError("list memberships", err)
	}
	roles, err := s.store.ListRoles(ctx, teamID)
	if err != nil {
		return nil, persistenceError("list roles", err)
	}
	roleNames := make(map[string]string, len(roles))
	for _, role := range roles {
		roleNames[role.ID] = role.Name
	}

	members := make([]membercache.MemberInfo, 0, len(memberships))
	for _, membership := range memberships {
		members = append(members, membercache.MemberInfo{
			UserID:   membership.UserID,
			RoleID:   membership.RoleID,
			RoleName: roleNames[membership.RoleID],
			AddedBy:  membership.AddedBy,
			AddedAt:  membership.CreatedAt,
		})
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, teamID, members); err != nil {
			log.Printf("membercache: put team %s: %v", teamID, err)
		}
	}
	return members, nil
}
