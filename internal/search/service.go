package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to the
// store scan.
type Service struct {
	meili *Meili
	scan  *Scan
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, scan *Scan) *Service {
	return &Service{meili: meili, scan: scan}
}

// Search tries Meilisearch if healthy, otherwise falls back to scanning.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		log.Printf("search: scan error: %v", err)
		return Response{Results: []TeamRecord{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexTeam indexes a team (fire-and-forget to Meilisearch).
func (s *Service) IndexTeam(record TeamRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTeam(record); err != nil {
			log.Printf("search: index team %s: %v", record.ID, err)
		}
	}()
}

// DeleteTeam removes a team from the search index (fire-and-forget).
func (s *Service) DeleteTeam(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteTeam(id); err != nil {
			log.Printf("search: delete team %s: %v", id, err)
		}
	}()
}

func nonNil(r []TeamRecord) []TeamRecord {
	if r == nil {
		return []TeamRecord{}
	}
	return r
}
