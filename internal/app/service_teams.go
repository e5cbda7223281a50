package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"teamboard/api/internal/docstore"
	"teamboard/api/internal/search"
	"teamboard/api/internal/store"
)

// sagaStep is one action in a multi-document operation. The store gives no
// cross-document atomicity, so failures are unwound with explicit
// compensations instead of a transaction.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context)
}

// runSaga executes steps in order. On failure at step n it runs the
// compensations of steps n-1..1 in reverse and returns the step error.
// Compensations are best-effort and run to completion even if the caller
// has gone away.
func runSaga(ctx context.Context, steps []sagaStep) error {
	var completed []sagaStep
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			for i := len(completed) - 1; i >= 0; i-- {
				if completed[i].undo != nil {
					completed[i].undo(ctx)
				}
			}
			return err
		}
		completed = append(completed, step)
	}
	return nil
}

// CreateTeam creates the team record, provisions default roles, and binds
// the owner to the Owner role. Any failure after the record is created
// deletes it again: callers observe either a complete team or none.
func (s *Service) CreateTeam(ctx context.Context, name, description, ownerID string) (store.Team, error) {
	if strings.TrimSpace(name) == "" {
		return store.Team{}, validationError("Team name is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return store.Team{}, validationError("Owner id is required")
	}

	var team store.Team
	var ownerRole store.Role

	err := runSaga(ctx, []sagaStep{
		{
			name: "create team record",
			run: func(ctx context.Context) error {
				created, err := s.store.CreateTeam(ctx, store.Team{
					Name:        strings.TrimSpace(name),
					Description: description,
					OwnerID:     ownerID,
					Active:      true,
					MemberIDs:   []string{ownerID},
					MemberCount: 1,
				})
				if err != nil {
					return persistenceError("create team", err)
				}
				team = created
				return nil
			},
			undo: func(ctx context.Context) {
				if err := s.store.DeleteTeam(ctx, team.ID); err != nil {
					log.Printf("teams: rollback delete team %s: %v", team.ID, err)
				}
			},
		},
		{
			name: "bootstrap default roles",
			run: func(ctx context.Context) error {
				return s.BootstrapDefaultRoles(ctx, team.ID)
			},
		},
		{
			name: "resolve owner role",
			run: func(ctx context.Context) error {
				resolved, err := s.ResolveOwnerRole(ctx, team.ID)
				if err != nil {
					return err
				}
				ownerRole = resolved
				return nil
			},
		},
		{
			name: "create owner membership",
			run: func(ctx context.Context) error {
				_, err := s.addMembership(ctx, team.ID, ownerID, ownerRole.ID, ownerID)
				return err
			},
		},
	})
	if err != nil {
		return store.Team{}, err
	}

	s.indexTeam(team)
	s.telemetry.Emit("team_created", map[string]any{"teamId": team.ID, "ownerId": ownerID})
	return team, nil
}

// JoinTeam adds a user to a team with the default Member role.
//
// The user id is appended to the team's member list BEFORE any role write:
// the persistence layer authorizes role sub-collection writes based on
// current team membership, so the joining user must already appear as a
// member when default roles are created or repaired on their behalf. Do not
// reorder these steps.
func (s *Service) JoinTeam(ctx context.Context, teamID, userID string) (store.Team, error) {
	if strings.TrimSpace(userID) == "" {
		return store.Team{}, validationError("User id is required")
	}

	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return store.Team{}, notFoundError("Team not found")
	}
	if err != nil {
		return store.Team{}, persistenceError("get team", err)
	}
	if contains(team.MemberIDs, userID) {
		return store.Team{}, alreadyMemberError()
	}

	originalMembers := make([]string, len(team.MemberIDs))
	copy(originalMembers, team.MemberIDs)
	newMembers := append(originalMembers[:len(originalMembers):len(originalMembers)], userID)

	var memberRole store.Role

	err = runSaga(ctx, []sagaStep{
		{
			name: "append member id",
			run: func(ctx context.Context) error {
				updated, err := s.store.UpdateTeam(ctx, teamID, map[string]any{"memberIds": newMembers})
				if err != nil {
					return persistenceError("append member", err)
				}
				team = updated
				return nil
			},
			undo: func(ctx context.Context) {
				if _, err := s.store.UpdateTeam(ctx, teamID, map[string]any{
					"memberIds":   originalMembers,
					"memberCount": len(originalMembers),
				}); err != nil {
					log.Printf("teams: rollback member list for team %s: %v", teamID, err)
				}
			},
		},
		{
			name: "resolve member role",
			run: func(ctx context.Context) error {
				resolved, err := s.ResolveMemberRole(ctx, teamID)
				if err == nil {
					memberRole = resolved
					return nil
				}
				var domainErr *DomainError
				if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
					return err
				}
				// Missing defaults: repair once, then retry.
				if err := s.BootstrapDefaultRoles(ctx, teamID); err != nil {
					log.Printf("teams: bootstrap during join of team %s: %v", teamID, err)
					return roleSetupError()
				}
				resolved, err = s.ResolveMemberRole(ctx, teamID)
				if err != nil {
					return roleSetupError()
				}
				memberRole = resolved
				return nil
			},
		},
		{
			name: "create membership",
			run: func(ctx context.Context) error {
				if _, err := s.store.CreateMembership(ctx, teamID, store.Membership{
					UserID:  userID,
					RoleID:  memberRole.ID,
					AddedBy: userID,
				}); err != nil {
					return membershipCreationError(err)
				}
				return nil
			},
		},
	})
	if err != nil {
		return store.Team{}, err
	}

	team, err = s.store.UpdateTeam(ctx, teamID, map[string]any{"memberCount": len(team.MemberIDs)})
	if err != nil {
		return store.Team{}, persistenceError("update member count", err)
	}

	s.invalidateMemberCache(ctx, teamID)
	s.indexTeam(team)
	s.telemetry.Emit("team_joined", map[string]any{"teamId": teamID, "userId": userID})
	return team, nil
}

// LeaveTeam removes the caller from a team. A missing membership record is
// tolerated as already-consistent. The owner may leave; the team is then
// left with an ownerId that resolves to no member, which is accepted
// behavior.
func (s *Service) LeaveTeam(ctx context.Context, teamID, userID string) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return notFoundError("Team not found")
	}
	if err != nil {
		return persistenceError("get team", err)
	}
	if !contains(team.MemberIDs, userID) {
		return notAMemberError("Not a member of this team")
	}

	if err := s.removeMembership(ctx, teamID, userID); err != nil {
		return err
	}

	count := team.MemberCount - 1
	if count < 0 {
		count = 0
	}
	if _, err := s.store.UpdateTeam(ctx, teamID, map[string]any{
		"memberIds":   without(team.MemberIDs, userID),
		"memberCount": count,
	}); err != nil {
		return persistenceError("update member list", err)
	}

	s.invalidateMemberCache(ctx, teamID)
	s.telemetry.Emit("team_left", map[string]any{"teamId": teamID, "userId": userID})
	return nil
}

// RemoveMember removes another user from the team. Identical effect to
// LeaveTeam except the owner cannot be removed, and the action is
// attributed to removedBy through the telemetry sink (there is no stored
// audit log).
func (s *Service) RemoveMember(ctx context.Context, teamID, userID, removedBy string) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return notFoundError("Team not found")
	}
	if err != nil {
		return persistenceError("get team", err)
	}
	if userID == team.OwnerID {
		return cannotRemoveOwnerError()
	}
	if !contains(team.MemberIDs, userID) {
		return notAMemberError("User is not a member of this team")
	}

	if err := s.removeMembership(ctx, teamID, userID); err != nil {
		return err
	}

	count := team.MemberCount - 1
	if count < 0 {
		count = 0
	}
	if _, err := s.store.UpdateTeam(ctx, teamID, map[string]any{
		"memberIds":   without(team.MemberIDs, userID),
		"memberCount": count,
	}); err != nil {
		return persistenceError("update member list", err)
	}

	s.invalidateMemberCache(ctx, teamID)
	s.telemetry.Emit("member_removed", map[string]any{
		"teamId":    teamID,
		"userId":    userID,
		"removedBy": removedBy,
	})
	return nil
}

// AssignRole binds a team member to a role, creating or updating the
// membership record. Any role may be assigned, including defaults.
func (s *Service) AssignRole(ctx context.Context, teamID, userID, roleID, assignedBy string) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return notFoundError("Team not found")
	}
	if err != nil {
		return persistenceError("get team", err)
	}
	if _, err := s.store.GetRole(ctx, teamID, roleID); errors.Is(err, docstore.ErrNotFound) {
		return notFoundError("Role not found")
	} else if err != nil {
		return persistenceError("get role", err)
	}
	if !contains(team.MemberIDs, userID) {
		return notAMemberError("User is not a member of this team")
	}

	if err := s.reassignRole(ctx, teamID, userID, roleID, assignedBy); err != nil {
		return err
	}

	s.invalidateMemberCache(ctx, teamID)
	s.telemetry.Emit("role_assigned", map[string]any{
		"teamId":     teamID,
		"userId":     userID,
		"roleId":     roleID,
		"assignedBy": assignedBy,
	})
	return nil
}

// GetTeam returns one team.
func (s *Service) GetTeam(ctx context.Context, teamID string) (store.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return store.Team{}, notFoundError("Team not found")
	}
	if err != nil {
		return store.Team{}, persistenceError("get team", err)
	}
	return team, nil
}

// TeamsForUser lists the teams whose member list contains the user.
func (s *Service) TeamsForUser(ctx context.Context, userID string) ([]store.Team, error) {
	teams, err := s.store.TeamsByMember(ctx, userID)
	if err != nil {
		return nil, persistenceError("list teams", err)
	}
	return teams, nil
}

// UpdateTeamProfile changes a team's name or description. Gated on
// membership only, consistent with the product's open role-management
// policy.
func (s *Service) UpdateTeamProfile(ctx context.Context, teamID string, name, description *string, actingUserID string) (store.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return store.Team{}, notFoundError("Team not found")
	}
	if err != nil {
		return store.Team{}, persistenceError("get team", err)
	}
	if !contains(team.MemberIDs, actingUserID) {
		return store.Team{}, notAMemberError("Only team members can edit the team")
	}

	patch := map[string]any{}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return store.Team{}, validationError("Team name is required")
		}
		patch["name"] = strings.TrimSpace(*name)
	}
	if description != nil {
		patch["description"] = *description
	}
	if len(patch) == 0 {
		return team, nil
	}

	updated, err := s.store.UpdateTeam(ctx, teamID, patch)
	if err != nil {
		return store.Team{}, persistenceError("update team", err)
	}
	s.indexTeam(updated)
	return updated, nil
}

// DeleteTeam removes the team and sweeps its role and membership
// sub-collections. Owner only.
func (s *Service) DeleteTeam(ctx context.Context, teamID, actingUserID string) error {
	team, err := s.store.GetTeam(ctx, teamID)
	if errors.Is(err, docstore.ErrNotFound) {
		return notFoundError("Team not found")
	}
	if err != nil {
		return persistenceError("get team", err)
	}
	if actingUserID != team.OwnerID {
		return forbiddenError("Only the team owner can delete the team")
	}

	// Sweep sub-collections first; orphans are only a cleanup concern, so
	// individual failures are logged rather than aborting the delete.
	memberships, err := s.store.ListMemberships(ctx, teamID)
	if err != nil {
		log.Printf("teams: list memberships for delete of %s: %v", teamID, err)
	}
	for _, membership := range memberships {
		if err := s.store.DeleteMembership(ctx, teamID, membership.ID); err != nil {
			log.Printf("teams: delete membership %s: %v", membership.ID, err)
		}
	}
	roles, err := s.store.ListRoles(ctx, teamID)
	if err != nil {
		log.Printf("teams: list roles for delete of %s: %v", teamID, err)
	}
	for _, role := range roles {
		if err := s.store.DeleteRole(ctx, teamID, role.ID); err != nil {
			log.Printf("teams: delete role %s: %v", role.ID, err)
		}
	}

	if err := s.store.DeleteTeam(ctx, teamID); err != nil {
		return persistenceError("delete team", err)
	}

	s.invalidateMemberCache(ctx, teamID)
	if s.search != nil {
		s.search.DeleteTeam(teamID)
	}
	s.telemetry.Emit("team_deleted", map[string]any{"teamId": teamID, "deletedBy": actingUserID})
	return nil
}

// SearchTeams queries the team directory.
func (s *Service) SearchTeams(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.TeamRecord{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) indexTeam(team store.Team) {
	if s.search == nil {
		return
	}
	s.search.IndexTeam(search.TeamRecord{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Active:      team.Active,
		MemberCount: team.MemberCount,
	})
}

// TeamRecords adapts the team list for the search fallback scan.
func TeamRecords(dataStore *store.Store) search.TeamLoader {
	return func(ctx context.Context) ([]search.TeamRecord, error) {
		teams, err := dataStore.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		records := make([]search.TeamRecord, len(teams))
		for i, team := range teams {
			records[i] = search.TeamRecord{
				ID:          team.ID,
				Name:        team.Name,
				Description: team.Description,
				OwnerID:     team.OwnerID,
				Active:      team.Active,
				MemberCount: team.MemberCount,
			}
		}
		return records, nil
	}
}
