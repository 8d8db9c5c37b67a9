package schemagen

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memoryStore backs the generated resolvers with per-model record tables. It exists
// so a compiled schema is executable end to end; persistence is somebody else's job.
type memoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]any
	nextID map[string]int
}

type listOptions struct {
	Limit  int
	Offset int
	SortBy string
	Filter map[string]any
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tables: make(map[string]map[string]map[string]any),
		nextID: make(map[string]int),
	}
}

func (s *memoryStore) Get(model, id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.tables[model][id]
	return record, ok
}

func (s *memoryStore) Create(model string, input map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[model] == nil {
		s.tables[model] = make(map[string]map[string]any)
	}
	s.nextID[model]++
	id := fmt.Sprintf("%d", s.nextID[model])

	record := make(map[string]any, len(input)+1)
	for k, v := range input {
		record[k] = v
	}
	record["id"] = id
	s.tables[model][id] = record
	return record
}

func (s *memoryStore) Update(model, id string, input map[string]any) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tables[model][id]
	if !ok {
		return nil, false
	}
	for k, v := range input {
		record[k] = v
	}
	record["id"] = id
	return record, true
}

func (s *memoryStore) Delete(model, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[model][id]; !ok {
		return false
	}
	delete(s.tables[model], id)
	return true
}

func (s *memoryStore) List(model string, opts listOptions) []map[string]any {
	s.mu.RLock()
	records := make([]map[string]any, 0, len(s.tables[model]))
	for _, record := range s.tables[model] {
		if matchesFilter(record, opts.Filter) {
			records = append(records, record)
		}
	}
	s.mu.RUnlock()

	sortKey := opts.SortBy
	if sortKey == "" {
		sortKey = "id"
	}
	sort.Slice(records, func(i, j int) bool {
		return fmt.Sprint(records[i][sortKey]) < fmt.Sprint(records[j][sortKey])
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(records) {
			return []map[string]any{}
		}
		records = records[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(records) {
		records = records[:opts.Limit]
	}
	return records
}

// matchesFilter applies generated filter-input arguments of the form <field>_<op>.
func matchesFilter(record, filter map[string]any) bool {
	for key, want := range filter {
		idx := strings.LastIndex(key, "_")
		if idx <= 0 {
			continue
		}
		field, op := key[:idx], key[idx+1:]
		got := record[field]

		switch op {
		case "eq":
			if fmt.Sprint(got) != fmt.Sprint(want) {
				return false
			}
		case "ne":
			if fmt.Sprint(got) == fmt.Sprint(want) {
				return false
			}
		case "contains":
			if !strings.Contains(fmt.Sprint(got), fmt.Sprint(want)) {
				return false
			}
		case "in":
			list, ok := want.([]any)
			if !ok {
				return false
			}
			found := false
			for _, candidate := range list {
				if fmt.Sprint(got) == fmt.Sprint(candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "gt", "gte", "lt", "lte":
			if !compareNumeric(got, want, op) {
				return false
			}
		}
	}
	return true
}

func compareNumeric(got, want any, op string) bool {
	g, gok := toFloat(got)
	w, wok := toFloat(want)
	if !gok || !wok {
		return false
	}
	switch op {
	case "gt":
		return g > w
	case "gte":
		return g >= w
	case "lt":
		return g < w
	case "lte":
		return g <= w
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
