package app

import (
	"time"

	"teamboard/api/internal/store"
)

// The store models exclude the document envelope (id, timestamps) from
// their JSON form because those fields never live inside the stored
// document. API responses re-attach them here.

func teamPayload(team store.Team) map[string]any {
	return map[string]any{
		"id":          team.ID,
		"name":        team.Name,
		"description": team.Description,
		"ownerId":     team.OwnerID,
		"active":      team.Active,
		"memberIds":   team.MemberIDs,
		"memberCount": team.MemberCount,
		"createdAt":   team.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":   team.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func teamPayloads(teams []store.Team) []map[string]any {
	out := make([]map[string]any, len(teams))
	for i, team := range teams {
		out[i] = teamPayload(team)
	}
	return out
}

func rolePayload(role store.Role) map[string]any {
	return map[string]any{
		"id":          role.ID,
		"name":        role.Name,
		"permissions": role.Permissions,
		"isCustom":    role.IsCustom,
		"isDefault":   role.IsDefault,
		"color":       role.Color,
		"createdAt":   role.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func rolePayloads(roles []store.Role) []map[string]any {
	out := make([]map[string]any, len(roles))
	for i, role := range roles {
		out[i] = rolePayload(role)
	}
	return out
}
