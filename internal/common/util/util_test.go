package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroPad(t *testing.T) {
	tests := map[string]struct {
		in    string
		width int
		want  string
	}{
		"pad single digit": {"4", 3, "004"},
		"pad two digits":   {"16", 2, "16"},
		"already wider":    {"1024", 3, "1024"},
		"empty":            {"", 2, "00"},
		"negative":         {"-4", 3, "-04"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ZeroPad(tc.in, tc.width))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "4"}, SplitList("1, 2 ,4,"))
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"${max(1, n)}", "8"}, SplitList("${max(1, n)}, 8"))
}

func TestTimestamp(t *testing.T) {
	clock := &DummyClock{T: time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-07T09-05", Timestamp(clock))
}

func TestNewSessionId(t *testing.T) {
	a := NewSessionId()
	b := NewSessionId()
	require.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}
