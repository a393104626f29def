package sweep

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/util"
	"github.com/benchtool/benchtool/internal/expr"
)

// NotSubmitted is the job id of an instance that has not been submitted yet.
const NotSubmitted = ""

// Launcher produces the MPI launch prefix stored under runtime.mpi_exec.
type Launcher interface {
	LaunchPrefix(ranks int, ranksPerNode, hostStr string) string
}

// SchedLauncher is used when jobs go through a batch scheduler, which knows the rank
// layout from the job script header.
type SchedLauncher struct {
	MPI string
}

func (l SchedLauncher) LaunchPrefix(int, string, string) string {
	return l.MPI + " "
}

// LocalLauncher spells out the rank layout for an MPI launcher started from a shell.
type LocalLauncher struct {
	MPI string
}

func (l LocalLauncher) LaunchPrefix(ranks int, ranksPerNode, hostStr string) string {
	return fmt.Sprintf("\"%s -np %d -ppn %s %s\"", l.MPI, ranks, ranksPerNode, hostStr)
}

// Instance is one materialized sweep point. Record is owned by the instance; changing it
// never affects the base record or any other instance.
type Instance struct {
	Point
	Record      *cfg.Record
	Ranks       int
	WorkingDir  string
	WorkingPath string
	JobID       string
}

// Generator turns sweep points into instances.
type Generator struct {
	System string
	// Timestamp is embedded in every working directory name.
	Timestamp string
	// BasePath is the directory working directories are created in.
	BasePath  string
	Evaluator *expr.Evaluator
	Launcher  Launcher
}

// Materialize builds the instance for p from a snapshot of base: the point's values are
// written to [runtime], [runtime] is resolved, then [config] is resolved with the runtime
// and requirements values in scope. Errors are *bencherrors.ErrEvaluation and only concern
// this point.
func (g *Generator) Materialize(p Point, base *cfg.Record) (*Instance, error) {
	rec := base.Snapshot()
	rec.Runtime.Set("nodes", p.Nodes)
	rec.Runtime.Set("threads", p.Threads)
	rec.Runtime.Set("ranks_per_node", p.RanksPerNode)

	runtime, err := g.Evaluator.Resolve(rec.Runtime.Map(), rec.Requirements.Map())
	if err != nil {
		return nil, err
	}
	rec.Runtime = rec.Runtime.WithValues(runtime)

	outer := rec.Requirements.Map()
	for k, v := range runtime {
		outer[k] = v
	}
	config, err := g.Evaluator.Resolve(rec.Config.Map(), outer)
	if err != nil {
		return nil, err
	}
	rec.Config = rec.Config.WithValues(config)

	nodes, err := intValue(rec.Runtime, "nodes")
	if err != nil {
		return nil, err
	}
	ranksPerNode, err := intValue(rec.Runtime, "ranks_per_node")
	if err != nil {
		return nil, err
	}
	ranks := nodes * ranksPerNode
	rec.Runtime.Set("ranks", strconv.Itoa(ranks))
	if g.Launcher != nil {
		rec.Runtime.Set("mpi_exec", g.Launcher.LaunchPrefix(ranks, rec.Runtime.Value("ranks_per_node"), rec.Runtime.Value("host_str")))
	}

	label := rec.Config.Value("label")
	if label == "" {
		label = rec.Requirements.Value("code")
	}
	workingDir := fmt.Sprintf("%s_%s_%s_%sN_%sR_%sT",
		g.System,
		label,
		g.Timestamp,
		util.ZeroPad(rec.Runtime.Value("nodes"), 3),
		util.ZeroPad(rec.Runtime.Value("ranks_per_node"), 2),
		util.ZeroPad(rec.Runtime.Value("threads"), 2),
	)
	workingPath := filepath.Join(g.BasePath, workingDir)
	rec.Metadata.Set("working_dir", workingDir)
	rec.Metadata.Set("working_path", workingPath)

	return &Instance{
		Point:       p,
		Record:      rec,
		Ranks:       ranks,
		WorkingDir:  workingDir,
		WorkingPath: workingPath,
		JobID:       NotSubmitted,
	}, nil
}

// Generate materializes every point of spec in order. Points that fail to materialize
// are left out and their errors are returned together.
func (g *Generator) Generate(spec Spec, base *cfg.Record) ([]*Instance, error) {
	var result *multierror.Error
	var instances []*Instance
	for _, p := range spec.Points() {
		instance, err := g.Materialize(p, base)
		if err != nil {
			result = multierror.Append(result, errors.WithMessage(err, p.Progress()))
			continue
		}
		instances = append(instances, instance)
	}
	return instances, result.ErrorOrNil()
}

func intValue(s cfg.Section, key string) (int, error) {
	raw := s.Value(key)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.WithStack(&bencherrors.ErrEvaluation{
			Key:        key,
			Expression: raw,
			Message:    "an integer is required",
		})
	}
	return v, nil
}
