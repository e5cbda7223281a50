package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TeamLoader returns every team as an indexable record. The store layer
// provides this so the fallback stays decoupled from document decoding.
type TeamLoader func(ctx context.Context) ([]TeamRecord, error)

// Scan implements Searcher by loading all teams and substring-matching in
// memory. It is the fallback when Meilisearch is not configured or down;
// team counts are small enough that this is acceptable.
type Scan struct {
	load TeamLoader
}

func NewScan(load TeamLoader) *Scan {
	return &Scan{load: load}
}

func (s *Scan) Healthy() bool { return true }

func (s *Scan) Search(q Query) ([]TeamRecord, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	teams, err := s.load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("scan teams: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	matched := make([]TeamRecord, 0, len(teams))
	for _, team := range teams {
		if q.ActiveOnly && !team.Active {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(team.Name), needle) &&
			!strings.Contains(strings.ToLower(team.Description), needle) {
			continue
		}
		matched = append(matched, team)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
