package store

import (
	"context"
	"errors"
	"testing"

	"teamboard/api/internal/docstore"
)

func newTestStore() *Store {
	return New(docstore.NewMemory())
}

func TestTeamRoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	created, err := s.CreateTeam(ctx, Team{
		Name:        "Acme",
		Description: "Launch planning",
		OwnerID:     "u1",
		Active:      true,
		MemberIDs:   []string{"u1"},
		MemberCount: 1,
	})
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	fetched, err := s.GetTeam(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	if fetched.Name != "Acme" || fetched.OwnerID != "u1" || !fetched.Active {
		t.Fatalf("round trip mismatch: %+v", fetched)
	}
	if len(fetched.MemberIDs) != 1 || fetched.MemberIDs[0] != "u1" {
		t.Fatalf("memberIds = %v", fetched.MemberIDs)
	}

	updated, err := s.UpdateTeam(ctx, created.ID, map[string]any{"memberCount": 3})
	if err != nil {
		t.Fatalf("UpdateTeam: %v", err)
	}
	if updated.MemberCount != 3 {
		t.Fatalf("memberCount = %d, want 3", updated.MemberCount)
	}
	if updated.Name != "Acme" {
		t.Fatalf("patch clobbered name: %+v", updated)
	}

	if err := s.DeleteTeam(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
	if _, err := s.GetTeam(ctx, created.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("GetTeam after delete: %v, want ErrNotFound", err)
	}
}

func TestTeamsByMember(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.CreateTeam(ctx, Team{Name: "Acme", OwnerID: "u1", Active: true, MemberIDs: []string{"u1", "u2"}, MemberCount: 2}); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if _, err := s.CreateTeam(ctx, Team{Name: "Beta", OwnerID: "u3", Active: true, MemberIDs: []string{"u3"}, MemberCount: 1}); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	teams, err := s.TeamsByMember(ctx, "u2")
	if err != nil {
		t.Fatalf("TeamsByMember: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Acme" {
		t.Fatalf("TeamsByMember = %+v, want only Acme", teams)
	}
}

func TestRolesAreScopedToTeam(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	roleA, err := s.CreateRole(ctx, "team-a", Role{Name: "Reviewer", Permissions: []string{"EDIT_NOTE"}, IsCustom: true})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if _, err := s.CreateRole(ctx, "team-b", Role{Name: "Reviewer", IsCustom: true}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	rolesA, err := s.ListRoles(ctx, "team-a")
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(rolesA) != 1 || rolesA[0].ID != roleA.ID {
		t.Fatalf("team-a roles = %+v", rolesA)
	}

	if _, err := s.GetRole(ctx, "team-b", roleA.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("cross-team GetRole: %v, want ErrNotFound", err)
	}
}

func TestMembershipQueries(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	m1, err := s.CreateMembership(ctx, "team-a", Membership{UserID: "u1", RoleID: "r1", AddedBy: "u1"})
	if err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	if _, err := s.CreateMembership(ctx, "team-a", Membership{UserID: "u2", RoleID: "r1", AddedBy: "u1"}); err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	if _, err := s.CreateMembership(ctx, "team-a", Membership{UserID: "u3", RoleID: "r2", AddedBy: "u1"}); err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}

	byUser, err := s.MembershipsByUser(ctx, "team-a", "u1")
	if err != nil {
		t.Fatalf("MembershipsByUser: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != m1.ID {
		t.Fatalf("MembershipsByUser = %+v", byUser)
	}

	byRole, err := s.MembershipsByRole(ctx, "team-a", "r1")
	if err != nil {
		t.Fatalf("MembershipsByRole: %v", err)
	}
	if len(byRole) != 2 {
		t.Fatalf("MembershipsByRole returned %d records, want 2", len(byRole))
	}

	moved, err := s.UpdateMembership(ctx, "team-a", m1.ID, map[string]any{"roleId": "r2"})
	if err != nil {
		t.Fatalf("UpdateMembership: %v", err)
	}
	if moved.RoleID != "r2" {
		t.Fatalf("roleId = %q, want r2", moved.RoleID)
	}

	if err := s.DeleteMembership(ctx, "team-a", m1.ID); err != nil {
		t.Fatalf("DeleteMembership: %v", err)
	}
	remaining, err := s.ListMemberships(ctx, "team-a")
	if err != nil {
		t.Fatalf("ListMemberships: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("got %d memberships after delete, want 2", len(remaining))
	}
}
