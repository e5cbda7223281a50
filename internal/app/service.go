package app

import (
	"context"
	"log"

	"teamboard/api/internal/config"
	"teamboard/api/internal/membercache"
	"teamboard/api/internal/search"
	"teamboard/api/internal/store"
	"teamboard/api/internal/telemetry"
)

// dataStore is the slice of the typed store the service uses. Tests embed
// *store.Store and override single methods to inject failures.
type dataStore interface {
	Ping(ctx context.Context) error

	CreateTeam(ctx context.Context, team store.Team) (store.Team, error)
	GetTeam(ctx context.Context, teamID string) (store.Team, error)
	ListTeams(ctx context.Context) ([]store.Team, error)
	TeamsByMember(ctx context.Context, userID string) ([]store.Team, error)
	UpdateTeam(ctx context.Context, teamID string, patch map[string]any) (store.Team, error)
	DeleteTeam(ctx context.Context, teamID string) error

	CreateRole(ctx context.Context, teamID string, role store.Role) (store.Role, error)
	GetRole(ctx context.Context, teamID, roleID string) (store.Role, error)
	ListRoles(ctx context.Context, teamID string) ([]store.Role, error)
	UpdateRole(ctx context.Context, teamID, roleID string, patch map[string]any) (store.Role, error)
	DeleteRole(ctx context.Context, teamID, roleID string) error

	CreateMembership(ctx context.Context, teamID string, membership store.Membership) (store.Membership, error)
	ListMemberships(ctx context.Context, teamID string) ([]store.Membership, error)
	MembershipsByUser(ctx context.Context, teamID, userID string) ([]store.Membership, error)
	MembershipsByRole(ctx context.Context, teamID, roleID string) ([]store.Membership, error)
	UpdateMembership(ctx context.Context, teamID, membershipID string, patch map[string]any) (store.Membership, error)
	DeleteMembership(ctx context.Context, teamID, membershipID string) error
}

// memberCache is the best-effort member display info cache. A nil cache
// disables the feature entirely.
type memberCache interface {
	Get(ctx context.Context, teamID string) ([]membercache.MemberInfo, bool, error)
	Put(ctx context.Context, teamID string, members []membercache.MemberInfo) error
	Invalidate(ctx context.Context, teamID string) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	cache     memberCache
	search    *search.Service
	telemetry telemetry.Sink
}

func New(cfg config.Config, dataStore *store.Store, searchService *search.Service, sink telemetry.Sink) *Service {
	return newService(cfg, dataStore, nil, searchService, sink)
}

func NewWithMemberCache(cfg config.Config, dataStore *store.Store, cache *membercache.RedisCache, searchService *search.Service, sink telemetry.Sink) *Service {
	return newService(cfg, dataStore, cache, searchService, sink)
}

func newService(cfg config.Config, dataStore dataStore, cache memberCache, searchService *search.Service, sink telemetry.Sink) *Service {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		cache:     cache,
		search:    searchService,
		telemetry: sink,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// invalidateMemberCache is best-effort; failures are logged and swallowed.
func (s *Service) invalidateMemberCache(ctx context.Context, teamID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, teamID); err != nil {
		log.Printf("membercache: invalidate team %s: %v", teamID, err)
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func without(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}
