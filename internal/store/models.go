package store

import "time"

// Team is the top-level team record. MemberIDs is the denormalized member
// list; MemberCount must equal len(MemberIDs) after any successful mutation.
type Team struct {
	ID          string    `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Active      bool      `json:"active"`
	MemberIDs   []string  `json:"memberIds"`
	MemberCount int       `json:"memberCount"`
}

// Role lives in a team's roles sub-collection. Default roles (Owner, Member)
// are provisioned at bootstrap and immutable through the public role
// operations; the repair pass may soft-delete duplicate defaults.
type Role struct {
	ID          string    `json:"-"`
	TeamID      string    `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	IsCustom    bool      `json:"isCustom"`
	IsDefault   bool      `json:"isDefault"`
	Color       string    `json:"color,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// Membership binds one user to one role within one team. The store enforces
// no uniqueness on (team, user); callers query before writing.
type Membership struct {
	ID        string    `json:"-"`
	TeamID    string    `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	UserID    string    `json:"userId"`
	RoleID    string    `json:"roleId"`
	AddedBy   string    `json:"addedBy"`
}
