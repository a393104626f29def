package config

import (
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Paths   []string      `mapstructure:"paths" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"`
	Mode    string        `mapstructure:"mode" validate:"oneof=sched local"`
}

func decode(t *testing.T, in map[string]interface{}) testConfig {
	t.Helper()
	var out testConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			ListDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result: &out,
	})
	require.NoError(t, err)
	require.NoError(t, decoder.Decode(in))
	return out
}

func TestListDecodeHook(t *testing.T) {
	out := decode(t, map[string]interface{}{
		"paths":   "a, b,${max(1, 2)}",
		"timeout": "5s",
		"mode":    "local",
	})
	assert.Equal(t, []string{"a", "b", "${max(1, 2)}"}, out.Paths)
	assert.Equal(t, 5*time.Second, out.Timeout)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		config testConfig
		valid  bool
	}{
		"valid":        {testConfig{Paths: []string{"a"}, Mode: "sched"}, true},
		"missing path": {testConfig{Mode: "sched"}, false},
		"bad mode":     {testConfig{Paths: []string{"a"}, Mode: "remote"}, false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := Validate(tc.config)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "Sched.Queue", stripPrefix("Settings.Sched.Queue"))
	assert.Equal(t, "Queue", stripPrefix("Queue"))
}
