package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"teamboard/api/internal/util"
)

// Memory is a mutex-guarded in-memory gateway. Documents are normalized
// through JSON on write so filter comparisons see the same value types the
// Postgres implementation does. Used by tests and as a dev fallback.
type Memory struct {
	mu   sync.Mutex
	cols map[string]map[string]memoryRecord
	seq  int64
}

type memoryRecord struct {
	entity Entity
	seq    int64
}

func NewMemory() *Memory {
	return &Memory{cols: make(map[string]map[string]memoryRecord)}
}

func colKey(collection, parentID string) string {
	return collection + "/" + parentID
}

// normalize round-trips a document through JSON so stored values are plain
// JSON types (string, float64, bool, []any, map[string]any, nil).
func normalize(data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func normalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize filter value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize filter value: %w", err)
	}
	return out, nil
}

func copyEntity(e Entity) Entity {
	data, _ := normalize(e.Data)
	e.Data = data
	return e
}

func (m *Memory) Create(ctx context.Context, collection, parentID string, data map[string]any) (Entity, error) {
	doc, err := normalize(data)
	if err != nil {
		return Entity{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := colKey(collection, parentID)
	if m.cols[key] == nil {
		m.cols[key] = make(map[string]memoryRecord)
	}

	now := time.Now()
	entity := Entity{
		ID:        util.NewID(""),
		CreatedAt: now,
		UpdatedAt: now,
		Data:      doc,
	}
	m.seq++
	m.cols[key][entity.ID] = memoryRecord{entity: entity, seq: m.seq}
	return copyEntity(entity), nil
}

func (m *Memory) GetByID(ctx context.Context, collection, parentID, id string) (Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.cols[colKey(collection, parentID)][id]
	if !ok {
		return Entity{}, ErrNotFound
	}
	return copyEntity(record.entity), nil
}

func (m *Memory) GetAll(ctx context.Context, collection, parentID string) ([]Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]memoryRecord, 0, len(m.cols[colKey(collection, parentID)]))
	for _, record := range m.cols[colKey(collection, parentID)] {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	entities := make([]Entity, len(records))
	for i, record := range records {
		entities[i] = copyEntity(record.entity)
	}
	return entities, nil
}

func (m *Memory) GetByFilter(ctx context.Context, collection, parentID string, filters []Filter) ([]Entity, error) {
	all, err := m.GetAll(ctx, collection, parentID)
	if err != nil {
		return nil, err
	}

	matched := make([]Entity, 0, len(all))
	for _, entity := range all {
		ok, err := matches(entity, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, entity)
		}
	}
	return matched, nil
}

func matches(entity Entity, filters []Filter) (bool, error) {
	for _, filter := range filters {
		want, err := normalizeValue(filter.Value)
		if err != nil {
			return false, err
		}
		got, present := entity.Data[filter.Field]

		switch filter.Op {
		case OpEqual:
			if !present || !reflect.DeepEqual(got, want) {
				return false, nil
			}
		case OpArrayContains:
			arr, ok := got.([]any)
			if !ok {
				return false, nil
			}
			found := false
			for _, item := range arr {
				if reflect.DeepEqual(item, want) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter operator %q", filter.Op)
		}
	}
	return true, nil
}

func (m *Memory) Update(ctx context.Context, collection, parentID, id string, patch map[string]any) (Entity, error) {
	doc, err := normalize(patch)
	if err != nil {
		return Entity{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := colKey(collection, parentID)
	record, ok := m.cols[key][id]
	if !ok {
		return Entity{}, ErrNotFound
	}

	for field, value := range doc {
		record.entity.Data[field] = value
	}
	record.entity.UpdatedAt = time.Now()
	m.cols[key][id] = record
	return copyEntity(record.entity), nil
}

func (m *Memory) Delete(ctx context.Context, collection, parentID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := colKey(collection, parentID)
	if _, ok := m.cols[key][id]; !ok {
		return ErrNotFound
	}
	delete(m.cols[key], id)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Count(ctx context.Context, collection, parentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cols[colKey(collection, parentID)]), nil
}
