// Package report writes and reads the human readable report left in every run directory.
package report

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/jobdep"
)

const (
	SectionBuild  = "build"
	SectionBench  = "bench"
	SectionResult = "result"
)

// Bench describes one submitted run.
type Bench struct {
	BenchPath  string
	System     string
	LaunchNode string
	Code       string
	Nodes      string
	Ranks      string
	Threads    string
	Dataset    string
	StartTime  string
	JobScript  string
	JobID      string
	SessionID  string
	OutputFile string
	// Result is the [result] section of the benchmark, copied after output_file.
	Result cfg.Section
}

// Write creates the report at path. When buildReport names an existing file its contents
// come first.
func Write(path, buildReport string, b Bench) error {
	var buf bytes.Buffer
	if buildReport != "" {
		content, err := os.ReadFile(buildReport)
		if err != nil && !os.IsNotExist(err) {
			return errors.WithStack(err)
		}
		buf.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}

	f := ini.Empty()
	bench := f.Section(SectionBench)
	pairs := [][2]string{
		{"bench_path", b.BenchPath},
		{"system", b.System},
		{"launch node", b.LaunchNode},
		{"code", b.Code},
		{"nodes", b.Nodes},
		{"ranks", b.Ranks},
		{"threads", b.Threads},
		{"dataset", b.Dataset},
		{"start_time", b.StartTime},
		{"job_script", b.JobScript},
		{"jobid", b.JobID},
	}
	if b.JobID != jobdep.DryRunJobID {
		pairs = append(pairs,
			[2]string{"stdout", b.JobID + ".out"},
			[2]string{"stderr", b.JobID + ".err"},
		)
	}
	if b.SessionID != "" {
		pairs = append(pairs, [2]string{"session_id", b.SessionID})
	}
	if err := addKeys(bench, pairs); err != nil {
		return err
	}

	result := f.Section(SectionResult)
	pairs = [][2]string{{"output_file", b.OutputFile}}
	for _, k := range b.Result.Keys() {
		if k != "output_file" {
			pairs = append(pairs, [2]string{k, b.Result.Value(k)})
		}
	}
	if err := addKeys(result, pairs); err != nil {
		return err
	}

	if _, err := f.WriteTo(&buf); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(path, buf.Bytes(), 0o644))
}

func addKeys(sec *ini.Section, pairs [][2]string) error {
	for _, kv := range pairs {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Report is a parsed report file.
type Report struct {
	Bench  cfg.Section
	Result cfg.Section
	// Sections holds every section of the file, including those of a chained build
	// report.
	Sections map[string]cfg.Section
}

// Read parses the report at path.
func Read(path string) (*Report, error) {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	r := &Report{Sections: map[string]cfg.Section{}}
	for _, sec := range f.Sections() {
		var s cfg.Section
		for _, k := range sec.Keys() {
			s.Set(k.Name(), k.Value())
		}
		r.Sections[sec.Name()] = s
	}
	r.Bench = r.Sections[SectionBench]
	r.Result = r.Sections[SectionResult]
	return r, nil
}
