package slices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, Map([]int{1, 2, 3}, strconv.Itoa))
	assert.Nil(t, Map([]int(nil), strconv.Itoa))
}

func TestFilter(t *testing.T) {
	even := func(i int) bool { return i%2 == 0 }
	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, even))
	assert.Equal(t, []int{}, Filter([]int{1, 3}, even))
	assert.Nil(t, Filter([]int(nil), even))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a.out", "b.err"}, Unique([]string{"a.out", "b.err", "a.out"}))
	assert.Nil(t, Unique([]string(nil)))
}

func TestSubtract(t *testing.T) {
	tests := map[string]struct {
		list     []string
		toRemove []string
		want     []string
	}{
		"nil list":      {nil, []string{"a"}, nil},
		"nothing":       {[]string{"a", "b"}, nil, []string{"a", "b"}},
		"some":          {[]string{"queue", "account", "threads"}, []string{"threads"}, []string{"queue", "account"}},
		"everything":    {[]string{"a"}, []string{"a"}, []string{}},
		"keeps ordered": {[]string{"c", "b", "a"}, []string{"b"}, []string{"c", "a"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Subtract(tc.list, tc.toRemove))
		})
	}
}

func TestSorted(t *testing.T) {
	in := []string{"b", "c", "a"}
	assert.Equal(t, []string{"a", "b", "c"}, Sorted(in))
	assert.Equal(t, []string{"b", "c", "a"}, in)
}
