package cfg

import "golang.org/x/exp/maps"

// Section is an ordered set of key-value pairs, one [section] of a cfg file. Key order is
// the order in which keys were first set, which is the order they appear in the file.
//
// The zero value is an empty section ready to use.
type Section struct {
	keys   []string
	values map[string]string
}

// NewSection builds a section from alternating key, value arguments.
func NewSection(kv ...string) Section {
	s := Section{}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i], kv[i+1])
	}
	return s
}

// Get returns the value stored under key and whether it exists.
func (s Section) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value stored under key, or the empty string.
func (s Section) Value(key string) string {
	return s.values[key]
}

// Has reports whether key is present, even with an empty value.
func (s Section) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Set stores value under key, appending key to the key order if it is new.
func (s *Section) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// SetDefault stores value under key only if key is not yet present.
func (s *Section) SetDefault(key, value string) {
	if !s.Has(key) {
		s.Set(key, value)
	}
}

// Keys returns the keys in order.
func (s Section) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s Section) Len() int {
	return len(s.keys)
}

// Map returns an unordered copy of the section's contents.
func (s Section) Map() map[string]string {
	if s.values == nil {
		return map[string]string{}
	}
	return maps.Clone(s.values)
}

// Clone returns an independent copy of s.
func (s Section) Clone() Section {
	return Section{
		keys:   append([]string(nil), s.keys...),
		values: maps.Clone(s.values),
	}
}

// WithValues returns a copy of s in which every key present in values is replaced. Keys in
// values that s does not hold are appended in sorted order.
func (s Section) WithValues(values map[string]string) Section {
	out := s.Clone()
	for _, k := range s.keys {
		if v, ok := values[k]; ok {
			out.Set(k, v)
		}
	}
	extra := maps.Keys(values)
	sortStrings(extra)
	for _, k := range extra {
		if !s.Has(k) {
			out.Set(k, values[k])
		}
	}
	return out
}
