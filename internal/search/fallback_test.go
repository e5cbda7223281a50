package search

import (
	"context"
	"errors"
	"testing"
)

func fixedLoader(records []TeamRecord) TeamLoader {
	return func(context.Context) ([]TeamRecord, error) {
		return records, nil
	}
}

func TestScanSearch(t *testing.T) {
	scan := NewScan(fixedLoader([]TeamRecord{
		{ID: "t1", Name: "Acme Launch", Description: "rocket team", Active: true},
		{ID: "t2", Name: "Beta Crew", Description: "dashboard work", Active: true},
		{ID: "t3", Name: "Retired", Description: "old launch team", Active: false},
	}))

	cases := []struct {
		name  string
		q     Query
		ids   []string
		total int
	}{
		{name: "empty query returns all sorted", q: Query{}, ids: []string{"t1", "t2", "t3"}, total: 3},
		{name: "matches name", q: Query{Text: "acme"}, ids: []string{"t1"}, total: 1},
		{name: "matches description", q: Query{Text: "launch"}, ids: []string{"t1", "t3"}, total: 2},
		{name: "active only", q: Query{Text: "launch", ActiveOnly: true}, ids: []string{"t1"}, total: 1},
		{name: "no match", q: Query{Text: "zzz"}, ids: []string{}, total: 0},
		{name: "limit", q: Query{Limit: 1}, ids: []string{"t1"}, total: 3},
		{name: "offset", q: Query{Offset: 2}, ids: []string{"t3"}, total: 3},
		{name: "offset past end", q: Query{Offset: 10}, ids: []string{}, total: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results, total, err := scan.Search(tc.q)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if total != tc.total {
				t.Fatalf("total = %d, want %d", total, tc.total)
			}
			if len(results) != len(tc.ids) {
				t.Fatalf("got %d results, want %d (%+v)", len(results), len(tc.ids), results)
			}
			for i, id := range tc.ids {
				if results[i].ID != id {
					t.Fatalf("result %d = %s, want %s", i, results[i].ID, id)
				}
			}
		})
	}
}

func TestScanSearchLoaderError(t *testing.T) {
	scan := NewScan(func(context.Context) ([]TeamRecord, error) {
		return nil, errors.New("store down")
	})
	if _, _, err := scan.Search(Query{}); err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestServiceFallsBackToScan(t *testing.T) {
	svc := NewService(nil, NewScan(fixedLoader([]TeamRecord{
		{ID: "t1", Name: "Acme", Active: true},
	})))

	resp := svc.Search(Query{Text: "acme"})
	if resp.Total != 1 || len(resp.Results) != 1 || resp.Results[0].ID != "t1" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Query != "acme" {
		t.Fatalf("query echo = %q", resp.Query)
	}
}

func TestServiceScanErrorYieldsEmptyResponse(t *testing.T) {
	svc := NewService(nil, NewScan(func(context.Context) ([]TeamRecord, error) {
		return nil, errors.New("store down")
	}))

	resp := svc.Search(Query{Text: "acme"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Total != 0 {
		t.Fatalf("response = %+v, want empty results", resp)
	}
}
