package msdata

import (
	"sort"
)

// Well known meta value keys
const (
	MetaUID                = `UID`
	MetaConsensusFeatureID = `cf_id`
	MetaSpectrumReference  = `spectrum_reference`
	MetaTargetDecoy        = `target_decoy`
	MetaSpectraData        = `spectra_data`
)

// MetaInfo is an open key/value map attached to identifications, hits,
// features and runs. Supported value types are string, int, float64,
// []string, []int and []float64.
type MetaInfo struct {
	values map[string]any
}

// Set stores value under key, replacing any previous value
func (m *MetaInfo) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[key] = cloneValue(value)
}

// Get returns the value stored under key
func (m MetaInfo) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Exists reports whether key has a value
func (m MetaInfo) Exists(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Remove deletes key
func (m *MetaInfo) Remove(key string) {
	delete(m.values, key)
}

// Len returns the number of keys
func (m MetaInfo) Len() int {
	return len(m.values)
}

// Keys returns all keys in lexical order
func (m MetaInfo) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key if it is a string
func (m MetaInfo) String(key string) (string, bool) {
	v, ok := m.values[key].(string)
	return v, ok
}

// CopyFrom copies every key of src into m, overwriting existing keys.
// Keys of m that are absent in src are kept.
func (m *MetaInfo) CopyFrom(src MetaInfo) {
	for k, v := range src.values {
		m.Set(k, v)
	}
}

// Clone returns a deep copy
func (m MetaInfo) Clone() MetaInfo {
	var c MetaInfo
	c.CopyFrom(m)
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []int:
		return append([]int(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	}
	return v
}
