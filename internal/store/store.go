// Package store maps the dashboard's typed records (teams, roles,
// memberships) onto the generic document gateway. Teams are a top-level
// collection; roles and members are sub-collections scoped by team id.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"teamboard/api/internal/docstore"
)

const (
	colTeams   = "teams"
	colRoles   = "roles"
	colMembers = "members"
)

type Store struct {
	gw docstore.Gateway
}

func New(gw docstore.Gateway) *Store {
	return &Store{gw: gw}
}

func (s *Store) Ping(ctx context.Context) error {
	type pinger interface{ Ping(context.Context) error }
	if p, ok := s.gw.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return doc, nil
}

func fromDoc(entity docstore.Entity, target any) error {
	raw, err := json.Marshal(entity.Data)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Teams

func (s *Store) CreateTeam(ctx context.Context, team Team) (Team, error) {
	doc, err := toDoc(team)
	if err != nil {
		return Team{}, err
	}
	entity, err := s.gw.Create(ctx, colTeams, "", doc)
	if err != nil {
		return Team{}, fmt.Errorf("create team: %w", err)
	}
	return teamFromEntity(entity)
}

func (s *Store) GetTeam(ctx context.Context, teamID string) (Team, error) {
	entity, err := s.gw.GetByID(ctx, colTeams, "", teamID)
	if err != nil {
		return Team{}, err
	}
	return teamFromEntity(entity)
}

func (s *Store) ListTeams(ctx context.Context) ([]Team, error) {
	entities, err := s.gw.GetAll(ctx, colTeams, "")
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams := make([]Team, 0, len(entities))
	for _, entity := range entities {
		team, err := teamFromEntity(entity)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

// TeamsByMember returns the teams whose member-id list contains userID.
func (s *Store) TeamsByMember(ctx context.Context, userID string) ([]Team, error) {
	entities, err := s.gw.GetByFilter(ctx, colTeams, "", []docstore.Filter{
		{Field: "memberIds", Op: docstore.OpArrayContains, Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("teams by member: %w", err)
	}
	teams := make([]Team, 0, len(entities))
	for _, entity := range entities {
		team, err := teamFromEntity(entity)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (s *Store) UpdateTeam(ctx context.Context, teamID string, patch map[string]any) (Team, error) {
	entity, err := s.gw.Update(ctx, colTeams, "", teamID, patch)
	if err != nil {
		return Team{}, err
	}
	return teamFromEntity(entity)
}

func (s *Store) DeleteTeam(ctx context.Context, teamID string) error {
	return s.gw.Delete(ctx, colTeams, "", teamID)
}

func teamFromEntity(entity docstore.Entity) (Team, error) {
	var team Team
	if err := fromDoc(entity, &team); err != nil {
		return Team{}, err
	}
	team.ID = entity.ID
	team.CreatedAt = entity.CreatedAt
	team.UpdatedAt = entity.UpdatedAt
	if team.MemberIDs == nil {
		team.MemberIDs = []string{}
	}
	return team, nil
}

// Roles

func (s *Store) CreateRole(ctx context.Context, teamID string, role Role) (Role, error) {
	doc, err := toDoc(role)
	if err != nil {
		return Role{}, err
	}
	entity, err := s.gw.Create(ctx, colRoles, teamID, doc)
	if err != nil {
		return Role{}, fmt.Errorf("create role: %w", err)
	}
	return roleFromEntity(teamID, entity)
}

func (s *Store) GetRole(ctx context.Context, teamID, roleID string) (Role, error) {
	entity, err := s.gw.GetByID(ctx, colRoles, teamID, roleID)
	if err != nil {
		return Role{}, err
	}
	return roleFromEntity(teamID, entity)
}

// ListRoles returns every role document including soft-deleted ones; the
// service layer filters.
func (s *Store) ListRoles(ctx context.Context, teamID string) ([]Role, error) {
	entities, err := s.gw.GetAll(ctx, colRoles, teamID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	roles := make([]Role, 0, len(entities))
	for _, entity := range entities {
		role, err := roleFromEntity(teamID, entity)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *Store) UpdateRole(ctx context.Context, teamID, roleID string, patch map[string]any) (Role, error) {
	entity, err := s.gw.Update(ctx, colRoles, teamID, roleID, patch)
	if err != nil {
		return Role{}, err
	}
	return roleFromEntity(teamID, entity)
}

func (s *Store) DeleteRole(ctx context.Context, teamID, roleID string) error {
	return s.gw.Delete(ctx, colRoles, teamID, roleID)
}

func roleFromEntity(teamID string, entity docstore.Entity) (Role, error) {
	var role Role
	if err := fromDoc(entity, &role); err != nil {
		return Role{}, err
	}
	role.ID = entity.ID
	role.TeamID = teamID
	role.CreatedAt = entity.CreatedAt
	role.UpdatedAt = entity.UpdatedAt
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	return role, nil
}

// Memberships

func (s *Store) CreateMembership(ctx context.Context, teamID string, membership Membership) (Membership, error) {
	doc, err := toDoc(membership)
	if err != nil {
		return Membership{}, err
	}
	entity, err := s.gw.Create(ctx, colMembers, teamID, doc)
	if err != nil {
		return Membership{}, fmt.Errorf("create membership: %w", err)
	}
	return membershipFromEntity(teamID, entity)
}

func (s *Store) ListMemberships(ctx context.Context, teamID string) ([]Membership, error) {
	entities, err := s.gw.GetAll(ctx, colMembers, teamID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return membershipsFromEntities(teamID, entities)
}

func (s *Store) MembershipsByUser(ctx context.Context, teamID, userID string) ([]Membership, error) {
	entities, err := s.gw.GetByFilter(ctx, colMembers, teamID, []docstore.Filter{
		{Field: "userId", Op: docstore.OpEqual, Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("memberships by user: %w", err)
	}
	return membershipsFromEntities(teamID, entities)
}

func (s *Store) MembershipsByRole(ctx context.Context, teamID, roleID string) ([]Membership, error) {
	entities, err := s.gw.GetByFilter(ctx, colMembers, teamID, []docstore.Filter{
		{Field: "roleId", Op: docstore.OpEqual, Value: roleID},
	})
	if err != nil {
		return nil, fmt.Errorf("memberships by role: %w", err)
	}
	return membershipsFromEntities(teamID, entities)
}

func (s *Store) UpdateMembership(ctx context.Context, teamID, membershipID string, patch map[string]any) (Membership, error) {
	entity, err := s.gw.Update(ctx, colMembers, teamID, membershipID, patch)
	if err != nil {
		return Membership{}, err
	}
	return membershipFromEntity(teamID, entity)
}

func (s *Store) DeleteMembership(ctx context.Context, teamID, membershipID string) error {
	return s.gw.Delete(ctx, colMembers, teamID, membershipID)
}

func membershipFromEntity(teamID string, entity docstore.Entity) (Membership, error) {
	var membership Membership
	if err := fromDoc(entity, &membership); err != nil {
		return Membership{}, err
	}
	membership.ID = entity.ID
	membership.TeamID = teamID
	membership.CreatedAt = entity.CreatedAt
	membership.UpdatedAt = entity.UpdatedAt
	return membership, nil
}

func membershipsFromEntities(teamID string, entities []docstore.Entity) ([]Membership, error) {
	memberships := make([]Membership, 0, len(entities))
	for _, entity := range entities {
		membership, err := membershipFromEntity(teamID, entity)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, membership)
	}
	return memberships, nil
}
