package cfg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/slices"
)

// Target is anything overload values can be applied to.
type Target interface {
	Has(key string) bool
	Set(key, value string)
}

// Overloads holds user supplied key=value pairs that take precedence over configuration
// values. The same set is applied to several unrelated targets (settings, scheduler
// parameters, cfg sections), so unknown keys are not rejected when applied. Instead every
// key that matched at least one target is remembered, and CheckForUnused reports the rest
// once all targets have been processed.
type Overloads struct {
	keys   []string
	values map[string]string
	used   map[string]bool
}

func NewOverloads() *Overloads {
	return &Overloads{
		values: make(map[string]string),
		used:   make(map[string]bool),
	}
}

// ParseOverloads parses "key=value" strings. Later pairs override earlier ones.
func ParseOverloads(pairs []string) (*Overloads, error) {
	o := NewOverloads()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.WithStack(&bencherrors.ErrInvalidArgument{
				Name:    "overload",
				Value:   pair,
				Message: "expected key=value",
			})
		}
		o.Set(key, strings.TrimSpace(value))
	}
	return o, nil
}

// Set adds or replaces an overload.
func (o *Overloads) Set(key, value string) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Merge adds every pair of other that o does not already hold. Pairs already in o win,
// so command line overloads can be merged over settings file ones.
func (o *Overloads) Merge(other map[string]string) {
	for _, k := range slices.Sorted(maps.Keys(other)) {
		if _, ok := o.values[k]; !ok {
			o.Set(k, other[k])
		}
	}
}

func (o *Overloads) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *Overloads) Len() int {
	return len(o.keys)
}

// Apply sets every overload whose key target already holds, and marks it used.
func (o *Overloads) Apply(target Target) {
	for _, k := range o.keys {
		if target.Has(k) {
			target.Set(k, o.values[k])
			o.used[k] = true
		}
	}
}

// Unused returns the overload keys that have not matched any target, in insertion order.
func (o *Overloads) Unused() []string {
	return slices.Filter(o.keys, func(k string) bool { return !o.used[k] })
}

// CheckForUnused logs a warning for every overload that matched nothing and returns them.
func (o *Overloads) CheckForUnused() []string {
	unused := o.Unused()
	for _, k := range unused {
		log.WithField("overload", fmt.Sprintf("%s=%s", k, o.values[k])).Warn("unused overload")
	}
	return unused
}

// Overlay merges site defaults, a benchmark record and the overloads into a new record.
// Values from base override defaults; overloads override both. Neither defaults nor base
// is modified.
func Overlay(defaults, base *Record, overloads *Overloads) *Record {
	out := base.Snapshot()
	if defaults != nil {
		for _, name := range SectionNames {
			from := defaults.Section(name)
			to := out.Section(name)
			for _, k := range from.Keys() {
				to.SetDefault(k, from.Value(k))
			}
		}
	}
	if overloads != nil {
		for _, name := range SectionNames {
			overloads.Apply(out.Section(name))
		}
	}
	return out
}
