// Package rbac holds the pure role/permission rules: the canonical
// permission model and the default-role de-duplication pass. No I/O.
package rbac

import (
	"sort"
	"time"
)

// Default role names. Every team carries exactly one non-deleted default
// role of each name.
const (
	RoleOwner  = "Owner"
	RoleMember = "Member"
)

// Permission tokens understood by the dashboard.
const (
	PermCreateNote = "CREATE_NOTE"
	PermEditNote   = "EDIT_NOTE"
	PermDeleteNote = "DELETE_NOTE"

	PermCreateTodo = "CREATE_TODO"
	PermEditTodo   = "EDIT_TODO"
	PermDeleteTodo = "DELETE_TODO"

	PermCreateTask = "CREATE_TASK"
	PermEditTask   = "EDIT_TASK"
	PermDeleteTask = "DELETE_TASK"

	PermInviteMember = "INVITE_MEMBER"
	PermRemoveMember = "REMOVE_MEMBER"
	PermEditTeam     = "EDIT_TEAM"
	PermDeleteTeam   = "DELETE_TEAM"
)

// maximal is the canonical permission set the Owner role must always carry.
var maximal = []string{
	PermCreateNote, PermEditNote, PermDeleteNote,
	PermCreateTodo, PermEditTodo, PermDeleteTodo,
	PermCreateTask, PermEditTask, PermDeleteTask,
	PermInviteMember, PermRemoveMember, PermEditTeam, PermDeleteTeam,
}

// Maximal returns a copy of the canonical maximal permission set.
func Maximal() []string {
	out := make([]string, len(maximal))
	copy(out, maximal)
	return out
}

// IsMaximal reports whether perms equals the canonical maximal set,
// order-independent, ignoring duplicates.
func IsMaximal(perms []string) bool {
	set := toSet(perms)
	if len(set) != len(maximal) {
		return false
	}
	for _, perm := range maximal {
		if !set[perm] {
			return false
		}
	}
	return true
}

func toSet(perms []string) map[string]bool {
	set := make(map[string]bool, len(perms))
	for _, perm := range perms {
		set[perm] = true
	}
	return set
}

// RoleRecord is the slice of a stored role the reconciliation pass needs.
type RoleRecord struct {
	ID          string
	Name        string
	Permissions []string
	IsDefault   bool
	Deleted     bool
	CreatedAt   time.Time
}

// Reconciliation is the outcome of the default-role de-duplication pass.
// DiscardIDs lists duplicate default roles to retire; memberships bound to a
// discarded id must be re-pointed to the retained id in RepointTo.
type Reconciliation struct {
	OwnerID    string
	MemberID   string
	DiscardIDs []string
	RepointTo  map[string]string
}

// HasOwner reports whether a canonical Owner role was found.
func (r Reconciliation) HasOwner() bool { return r.OwnerID != "" }

// HasMember reports whether a canonical Member role was found.
func (r Reconciliation) HasMember() bool { return r.MemberID != "" }

// Clean reports whether no duplicates need repair.
func (r Reconciliation) Clean() bool { return len(r.DiscardIDs) == 0 }

// ReconcileDefaults picks the canonical Owner and Member roles from a team's
// role list and marks every other default role of those names for discard.
//
// Owner duplicates: an exact match of the canonical maximal set wins;
// otherwise the largest permission set, ties broken by earliest creation.
// Member duplicates: an exact empty set wins; otherwise the smallest
// permission set, ties broken by earliest creation. Member is the
// empty-permission baseline, so smaller is closer to canonical.
func ReconcileDefaults(roles []RoleRecord) Reconciliation {
	result := Reconciliation{RepointTo: make(map[string]string)}

	owners := defaultsNamed(roles, RoleOwner)
	members := defaultsNamed(roles, RoleMember)

	if len(owners) > 0 {
		keep := pick(owners, func(r RoleRecord) bool { return IsMaximal(r.Permissions) }, true)
		result.OwnerID = keep.ID
		for _, role := range owners {
			if role.ID != keep.ID {
				result.DiscardIDs = append(result.DiscardIDs, role.ID)
				result.RepointTo[role.ID] = keep.ID
			}
		}
	}

	if len(members) > 0 {
		keep := pick(members, func(r RoleRecord) bool { return len(r.Permissions) == 0 }, false)
		result.MemberID = keep.ID
		for _, role := range members {
			if role.ID != keep.ID {
				result.DiscardIDs = append(result.DiscardIDs, role.ID)
				result.RepointTo[role.ID] = keep.ID
			}
		}
	}

	return result
}

func defaultsNamed(roles []RoleRecord, name string) []RoleRecord {
	out := []RoleRecord{}
	for _, role := range roles {
		if role.IsDefault && !role.Deleted && role.Name == name {
			out = append(out, role)
		}
	}
	return out
}

// pick orders candidates by: exact canonical match first, then permission
// count (descending when preferLargest, ascending otherwise), then earliest
// creation time, and returns the winner.
func pick(candidates []RoleRecord, exact func(RoleRecord) bool, preferLargest bool) RoleRecord {
	sorted := make([]RoleRecord, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		ei, ej := exact(sorted[i]), exact(sorted[j])
		if ei != ej {
			return ei
		}
		li, lj := len(sorted[i].Permissions), len(sorted[j].Permissions)
		if li != lj {
			if preferLargest {
				return li > lj
			}
			return li < lj
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted[0]
}
