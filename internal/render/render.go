// Package render produces job scripts from templates holding <<<key>>> placeholders.
package render

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/slices"
)

var placeholderPattern = regexp.MustCompile(`<<<\s*([A-Za-z0-9_.\-]+)\s*>>>`)

// Substitute replaces every placeholder in text with its value from vars. It returns the
// keys of placeholders without a value, which are left in place.
func Substitute(text string, vars map[string]string) (string, []string) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		missing = append(missing, key)
		return match
	})
	return out, slices.Unique(missing)
}

// Render concatenates the template files, substitutes vars and writes the result to dest
// as an executable script. A placeholder without a value is an *bencherrors.ErrEvaluation
// and nothing is written.
func Render(dest string, vars map[string]string, templates ...string) error {
	var parts []string
	for _, path := range templates {
		b, err := os.ReadFile(path)
		if err != nil {
			return errors.WithStack(err)
		}
		parts = append(parts, strings.TrimRight(string(b), "\n"))
	}
	script, missing := Substitute(strings.Join(parts, "\n\n")+"\n", vars)
	if len(missing) > 0 {
		return errors.WithStack(&bencherrors.ErrEvaluation{
			Key:     missing[0],
			Message: "no value for template placeholders " + strings.Join(missing, ", "),
		})
	}
	return errors.WithStack(os.WriteFile(dest, []byte(script), 0o755))
}
