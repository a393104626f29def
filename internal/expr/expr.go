// Package expr resolves expressions embedded in configuration values.
//
// Values use HCL template syntax: "${threads * 2}" or "run_${nodes}N". Inside an
// interpolation every other key of the mapping being resolved is a variable, along with
// the keys of an optional outer mapping. Values without an interpolation are literals and
// pass through untouched, so resolving an already resolved mapping changes nothing.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"golang.org/x/exp/maps"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/slices"
)

// Result is the outcome of evaluating one value: either a literal or an error.
type Result struct {
	Value string
	Err   error
}

func (r Result) Resolved() bool {
	return r.Err == nil
}

// Evaluator evaluates expressions with a fixed function table.
type Evaluator struct {
	functions map[string]function.Function
}

func New() *Evaluator {
	return &Evaluator{functions: defaultFunctions()}
}

func defaultFunctions() map[string]function.Function {
	return map[string]function.Function{
		"abs":      stdlib.AbsoluteFunc,
		"ceil":     stdlib.CeilFunc,
		"floor":    stdlib.FloorFunc,
		"int":      stdlib.IntFunc,
		"max":      stdlib.MaxFunc,
		"min":      stdlib.MinFunc,
		"pow":      stdlib.PowFunc,
		"log":      stdlib.LogFunc,
		"parseint": stdlib.ParseIntFunc,
		"format":   stdlib.FormatFunc,
		"upper":    stdlib.UpperFunc,
		"lower":    stdlib.LowerFunc,
		"trim":     stdlib.TrimSpaceFunc,
		"replace":  stdlib.ReplaceFunc,
		"substr":   stdlib.SubstrFunc,
		"strlen":   stdlib.StrlenFunc,
	}
}

// IsExpression reports whether s contains an interpolation or directive.
func IsExpression(s string) bool {
	return strings.Contains(s, "${") || strings.Contains(s, "%{")
}

// Evaluate evaluates a single value against vars. key only labels errors.
func (e *Evaluator) Evaluate(key, src string, vars map[string]string) Result {
	if !IsExpression(src) {
		return Result{Value: src}
	}
	parsed, err := parse(key, src)
	if err != nil {
		return Result{Err: err}
	}
	return e.evaluate(key, src, parsed, vars)
}

// Resolve returns a copy of values in which every expression has been replaced by its
// result. Expressions may reference other keys of values, in any order, and keys of
// outer. Keys of values shadow keys of outer, except that a value referencing its own key
// sees the outer value. A reference to a key found in neither mapping, a syntax error, or a
// reference cycle yields an *bencherrors.ErrEvaluation and no mapping.
func (e *Evaluator) Resolve(values, outer map[string]string) (map[string]string, error) {
	out := maps.Clone(values)
	if out == nil {
		out = map[string]string{}
	}

	pending := map[string]hcl.Expression{}
	for k, v := range values {
		if !IsExpression(v) {
			continue
		}
		parsed, err := parse(k, v)
		if err != nil {
			return nil, err
		}
		pending[k] = parsed
	}

	for len(pending) > 0 {
		progressed := false
		for _, k := range slices.Sorted(maps.Keys(pending)) {
			ready, err := checkReferences(k, values[k], pending[k], values, outer, pending)
			if err != nil {
				return nil, err
			}
			if !ready {
				continue
			}
			vars := make(map[string]string, len(outer)+len(out))
			for ok, ov := range outer {
				vars[ok] = ov
			}
			for rk, rv := range out {
				if _, unresolved := pending[rk]; !unresolved {
					vars[rk] = rv
				}
			}
			result := e.evaluate(k, values[k], pending[k], vars)
			if !result.Resolved() {
				return nil, result.Err
			}
			out[k] = result.Value
			delete(pending, k)
			progressed = true
		}
		if !progressed {
			keys := slices.Sorted(maps.Keys(pending))
			return nil, errors.WithStack(&bencherrors.ErrEvaluation{
				Key:        keys[0],
				Expression: values[keys[0]],
				Message:    fmt.Sprintf("reference cycle between %s", strings.Join(keys, ", ")),
			})
		}
	}
	return out, nil
}

// checkReferences reports whether every variable of the expression under key is
// available. Unknown references are an error.
func checkReferences(
	key, src string,
	parsed hcl.Expression,
	values, outer map[string]string,
	pending map[string]hcl.Expression,
) (bool, error) {
	ready := true
	for _, traversal := range parsed.Variables() {
		ref := traversal.RootName()
		_, inValues := values[ref]
		_, inOuter := outer[ref]
		switch {
		case ref == key && !inOuter:
			return false, errors.WithStack(&bencherrors.ErrEvaluation{
				Key:        key,
				Expression: src,
				Message:    "expression references itself",
			})
		case ref == key:
		case !inValues && !inOuter:
			return false, errors.WithStack(&bencherrors.ErrEvaluation{
				Key:        key,
				Expression: src,
				Message:    fmt.Sprintf("unknown reference %q", ref),
			})
		default:
			if _, unresolved := pending[ref]; unresolved {
				ready = false
			}
		}
	}
	return ready, nil
}

func parse(key, src string) (hcl.Expression, error) {
	parsed, diags := hclsyntax.ParseTemplate([]byte(src), key, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, errors.WithStack(&bencherrors.ErrEvaluation{
			Key:        key,
			Expression: src,
			Message:    diags.Error(),
		})
	}
	return parsed, nil
}

func (e *Evaluator) evaluate(key, src string, parsed hcl.Expression, vars map[string]string) Result {
	ctx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value, len(vars)),
		Functions: e.functions,
	}
	for k, v := range vars {
		ctx.Variables[k] = toValue(v)
	}
	value, diags := parsed.Value(ctx)
	if diags.HasErrors() {
		return Result{Err: errors.WithStack(&bencherrors.ErrEvaluation{
			Key:        key,
			Expression: src,
			Message:    diags.Error(),
		})}
	}
	s, err := fromValue(value)
	if err != nil {
		return Result{Err: errors.WithStack(&bencherrors.ErrEvaluation{
			Key:        key,
			Expression: src,
			Message:    err.Error(),
		})}
	}
	return Result{Value: s}
}

// toValue keeps configuration strings as strings so interpolation reproduces them
// exactly. Arithmetic operators and function arguments convert them to numbers.
func toValue(s string) cty.Value {
	return cty.StringVal(s)
}

func fromValue(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", errors.New("expression evaluated to null")
	}
	if !v.IsWhollyKnown() {
		return "", errors.New("expression evaluated to an unknown value")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			return bf.Text('f', 0), nil
		}
		f, _ := bf.Float64()
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case cty.Bool:
		return strconv.FormatBool(v.True()), nil
	}
	converted, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", errors.Errorf("%s value cannot be used as a configuration value", v.Type().FriendlyName())
	}
	return converted.AsString(), nil
}
