// Package search is the team directory: find teams to join by name or
// description. Meilisearch when available, a store scan otherwise.
package search

// TeamRecord is the data indexed for a team.
type TeamRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
	Active      bool   `json:"active"`
	MemberCount int    `json:"memberCount"`
}

// Query describes a directory search request.
type Query struct {
	Text       string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []TeamRecord `json:"results"`
	Total   int          `json:"total"`
	Query   string       `json:"query"`
}

// Searcher can execute a directory search.
type Searcher interface {
	Search(q Query) ([]TeamRecord, int, error)
	Healthy() bool
}
