package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"teamboard/api/internal/config"
	"teamboard/api/internal/docstore"
	"teamboard/api/internal/membercache"
	"teamboard/api/internal/store"
)

func TestTeamMembers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTeam(ctx, "Acme", "", "u1")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if _, err := svc.JoinTeam(ctx, created.ID, "u2"); err != nil {
		t.Fatalf("JoinTeam: %v", err)
	}

	members, err := svc.TeamMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}

	byUser := make(map[string]membercache.MemberInfo, len(members))
	for _, member := range members {
		byUser[member.UserID] = member
	}
	if byUser["u1"].RoleName != "Owner" {
		t.Fatalf("u1 role = %q, want Owner", byUser["u1"].RoleName)
	}
	if byUser["u2"].RoleName != "Member" {
		t.Fatalf("u2 role = %q, want Member", byUser["u2"].RoleName)
	}
	if byUser["u2"].AddedBy != "u2" {
		t.Fatalf("u2 addedBy = %q, want self-join attribution", byUser["u2"].AddedBy)
	}

	_, err = svc.TeamMembers(ctx, "missing")
	wantDomainError(t, err, "NOT_FOUND")
}

func TestTeamMembersCacheReadThrough(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cache := membercache.NewRedisCacheWithClient(client, time.Minute)
	defer cache.Close()

	dataStore := store.New(docstore.NewMemory())
	svc := newService(config.Config{}, dataStore, cache, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateTeam(ctx, "Acme", "", "u1")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	first, err := svc.TeamMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d members, want 1", len(first))
	}

	// The read populated the cache; a direct store write that skips
	// invalidation is not visible until the entry is dropped.
	if _, err := dataStore.CreateMembership(ctx, created.ID, store.Membership{UserID: "ghost", RoleID: "r", AddedBy: "x"}); err != nil {
		t.Fatalf("CreateMembership: %v", err)
	}
	stale, err := svc.TeamMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("got %d members, want cached 1", len(stale))
	}

	if err := cache.Invalidate(ctx, created.ID); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	fresh, err := svc.TeamMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("got %d members after invalidation, want 2", len(fresh))
	}
}

func TestJoinInvalidatesMemberCache(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cache := membercache.NewRedisCacheWithClient(client, time.Minute)
	defer cache.Close()

	dataStore := store.New(docstore.NewMemory())
	svc := newService(config.Config{}, dataStore, cache, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateTeam(ctx, "Acme", "", "u1")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if _, err := svc.TeamMembers(ctx, created.ID); err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}

	if _, err := svc.JoinTeam(ctx, created.ID, "u2"); err != nil {
		t.Fatalf("JoinTeam: %v", err)
	}

	members, err := svc.TeamMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members after join, want 2 (cache must be invalidated)", len(members))
	}
}
