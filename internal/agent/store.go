package agent

import (
	"fmt"
	"sort"
	"sync"
)

const (
	// PromptKey holds the user query every unit plans against.
	PromptKey = "prompt"
	// MissingInputKey is bound instead of a required input that the Data
	// Store does not hold. Its value names the missing keys.
	MissingInputKey = "info"
	// ReportKey holds the report path produced by a completed run.
	ReportKey = "report"
)

// DataStore is the key/value bag a unit accumulates step inputs and outputs
// in. Writes to an existing key overwrite it.
type DataStore struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewDataStore() *DataStore {
	return &DataStore{data: make(map[string]any)}
}

// Merge copies every entry of values into the store.
func (s *DataStore) Merge(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = v
	}
}

func (s *DataStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *DataStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// String returns the value under key formatted as text, or "" if absent.
func (s *DataStore) String(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Snapshot returns a shallow copy of the current contents.
func (s *DataStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

func (s *DataStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
