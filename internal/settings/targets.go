package settings

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/benchtool/benchtool/internal/cfg"
)

const SchedPrefix = "sched."

// viperTarget exposes the scalar keys of v under prefix to overloads.
type viperTarget struct {
	v      *viper.Viper
	prefix string
}

func (t viperTarget) Has(key string) bool {
	if strings.Contains(key, ".") || isMapKey(key) {
		return false
	}
	full := t.prefix + key
	for _, k := range t.v.AllKeys() {
		if k == full {
			return true
		}
	}
	return false
}

func (t viperTarget) Set(key, value string) {
	t.v.Set(t.prefix+key, value)
}

// Targets returns the overload targets for the top level settings and the scheduler
// settings of v.
func Targets(v *viper.Viper) []cfg.Target {
	return []cfg.Target{
		viperTarget{v: v},
		viperTarget{v: v, prefix: SchedPrefix},
	}
}

func isMapKey(key string) bool {
	return key == "overloads" || key == "suites"
}

func flatten(v *viper.Viper) map[string]string {
	out := make(map[string]string)
	for _, key := range v.AllKeys() {
		root := strings.SplitN(key, ".", 2)[0]
		if isMapKey(root) {
			continue
		}
		value := v.Get(key)
		switch typed := value.(type) {
		case []string:
			out[key] = strings.Join(typed, ", ")
		case []interface{}:
			parts := make([]string, len(typed))
			for i, p := range typed {
				parts[i] = fmt.Sprint(p)
			}
			out[key] = strings.Join(parts, ", ")
		default:
			out[key] = v.GetString(key)
		}
	}
	return out
}
