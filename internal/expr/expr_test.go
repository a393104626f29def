package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]string{
		"nodes":          "2",
		"ranks_per_node": "4",
		"threads":        "7",
		"code":           "lammps",
		"ratio":          "0.5",
		"version":        "2.10",
		"id":             "007",
	}
	tests := map[string]struct {
		src      string
		expected string
	}{
		"literal":           {src: "lj.in", expected: "lj.in"},
		"empty":             {src: "", expected: ""},
		"arithmetic":        {src: "${nodes * ranks_per_node}", expected: "8"},
		"division":          {src: "${threads / 2}", expected: "3.5"},
		"function":          {src: "${ceil(threads / 2)}", expected: "4"},
		"nested functions":  {src: "${max(1, floor(threads / 4))}", expected: "1"},
		"float":             {src: "${ratio * 3}", expected: "1.5"},
		"interpolation":     {src: "${code}_${nodes}N", expected: "lammps_2N"},
		"string function":   {src: "${upper(code)}", expected: "LAMMPS"},
		"conditional":       {src: `${nodes > 1 ? "multi" : "single"}`, expected: "multi"},
		"bool":              {src: "${nodes > 1}", expected: "true"},
		"prefix":            {src: "x${nodes}", expected: "x2"},
		"trailing zero":     {src: "lmp_${version}", expected: "lmp_2.10"},
		"leading zeros":     {src: "case_${id}.in", expected: "case_007.in"},
		"padded arithmetic": {src: "${id + 1}", expected: "8"},
	}
	e := New()
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			result := e.Evaluate("key", tc.src, vars)
			require.True(t, result.Resolved(), "%v", result.Err)
			assert.Equal(t, tc.expected, result.Value)
		})
	}
}

func TestResolve_KeepsNumericText(t *testing.T) {
	resolved, err := New().Resolve(
		map[string]string{"exe": "lmp_${version}", "input": "case_${id}.in"},
		map[string]string{"version": "2.10", "id": "007"},
	)
	require.NoError(t, err)
	assert.Equal(t, "lmp_2.10", resolved["exe"])
	assert.Equal(t, "case_007.in", resolved["input"])
}

func TestEvaluate_Errors(t *testing.T) {
	tests := map[string]string{
		"syntax":           "${nodes *}",
		"unknown variable": "${missing}",
		"unknown function": "${sqrt(4)}",
		"type mismatch":    `${"a" * 2}`,
	}
	e := New()
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			result := e.Evaluate("threads", src, map[string]string{"nodes": "1"})
			assert.False(t, result.Resolved())
			assert.Equal(t, bencherrors.KindEvaluation, bencherrors.KindFromError(result.Err))
			assert.False(t, bencherrors.IsFatal(result.Err))
		})
	}
}

func TestResolve_DependencyOrder(t *testing.T) {
	values := map[string]string{
		"total":   "${ranks * threads}",
		"ranks":   "${nodes * ranks_per_node}",
		"threads": "4",
		"label":   "run_${total}",
	}
	outer := map[string]string{"nodes": "2", "ranks_per_node": "8"}

	out, err := New().Resolve(values, outer)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"total":   "64",
		"ranks":   "16",
		"threads": "4",
		"label":   "run_64",
	}, out)
	assert.Equal(t, "${ranks * threads}", values["total"], "input untouched")
}

func TestResolve_Idempotent(t *testing.T) {
	e := New()
	values := map[string]string{"a": "3", "b": "${a * 2}", "c": "plain"}

	first, err := e.Resolve(values, nil)
	require.NoError(t, err)
	second, err := e.Resolve(first, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_ShadowingAndSelfReference(t *testing.T) {
	e := New()

	out, err := e.Resolve(map[string]string{"threads": "8", "x": "${threads}"}, map[string]string{"threads": "2"})
	require.NoError(t, err)
	assert.Equal(t, "8", out["x"], "inner keys shadow outer ones")

	out, err = e.Resolve(map[string]string{"threads": "${threads * 2}"}, map[string]string{"threads": "2"})
	require.NoError(t, err)
	assert.Equal(t, "4", out["threads"], "self reference reads the outer value")
}

func TestResolve_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing reference": {"a": "${b}"},
		"self reference":    {"a": "${a + 1}"},
		"cycle":             {"a": "${b}", "b": "${a}"},
		"syntax":            {"a": "${"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := New().Resolve(values, nil)
			assert.Nil(t, out)
			var e *bencherrors.ErrEvaluation
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "a", e.Key)
		})
	}
}
