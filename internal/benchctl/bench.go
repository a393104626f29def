package benchctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	goslices "golang.org/x/exp/slices"
	"github.com/sanity-io/litter"
	log "github.com/sirupsen/logrus"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/util"
	"github.com/benchtool/benchtool/internal/expr"
	"github.com/benchtool/benchtool/internal/jobdep"
	"github.com/benchtool/benchtool/internal/metrics"
	"github.com/benchtool/benchtool/internal/provenance"
	"github.com/benchtool/benchtool/internal/render"
	"github.com/benchtool/benchtool/internal/report"
	"github.com/benchtool/benchtool/internal/results"
	"github.com/benchtool/benchtool/internal/sched"
	"github.com/benchtool/benchtool/internal/settings"
	"github.com/benchtool/benchtool/internal/sweep"
)

// Names of the files written into each working directory.
const (
	SchedScript        = "bench.sched"
	LocalScript        = "bench.job"
	ProvenanceCfg      = "bench.cfg"
	ProvenanceTemplate = "bench.template"
)

const (
	benchTemplateDir = "bench"
	schedTemplateDir = "sched"
	startTimeLayout  = "2006-01-02 15:04:05"
)

// benchRun is the state of the sweep of one benchmark.
type benchRun struct {
	label         string
	record        *cfg.Record
	spec          sweep.Spec
	generator     *sweep.Generator
	tracker       *jobdep.Tracker
	benchTemplate string
	schedTemplate string
	scriptName    string
	jobLabel      string
	buildReport   string
	// buildJobID is the still active build job every submission waits for.
	buildJobID string
	sessionID  string
}

// Bench runs the sweep of every benchmark named by input. Configuration problems are
// returned as errors and stop the session; instances that fail on their own are recorded
// in the summary and the sweep moves on.
func (a *App) Bench(ctx context.Context, input string) (*Summary, error) {
	if err := a.validateParams(); err != nil {
		return nil, err
	}
	labels := a.Labels(input)
	if len(labels) == 0 {
		return nil, errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "benchmark",
			Value:   input,
			Message: "no benchmark labels given",
		})
	}

	summary := &Summary{SessionID: util.NewSessionId()}
	timestamp := util.Timestamp(a.Params.Clock)
	log.WithField("session", summary.SessionID).Infof("starting benchmark session on %s", a.Params.Hostname)
	defer a.writeMetrics()

	for _, label := range labels {
		run, err := a.prepare(ctx, label, timestamp)
		if err != nil {
			return summary, errors.WithMessagef(err, "benchmark %s", label)
		}
		run.sessionID = summary.SessionID
		a.sweep(ctx, run, summary)
		if err := ctx.Err(); err != nil {
			return summary, errors.Wrap(err, "benchmark session interrupted")
		}
	}
	return summary, nil
}

// Labels expands input into benchmark labels: the members of the suite called input, or
// else the ':' separated labels of input itself.
func (a *App) Labels(input string) []string {
	if suite, ok := a.Params.Settings.Suites[input]; ok {
		log.Infof("expanding suite %s", input)
		input = suite
	}
	var labels []string
	for _, label := range strings.FieldsFunc(input, func(r rune) bool { return r == ':' || r == ',' }) {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

// prepare loads and checks everything the sweep of label needs before anything is
// written. Every error it returns is fatal.
func (a *App) prepare(ctx context.Context, label, timestamp string) (*benchRun, error) {
	s := a.Params.Settings

	base, err := a.Params.Loader.Load(label)
	if err != nil {
		return nil, err
	}
	record := cfg.Overlay(cfg.DefaultRecord(), base, a.Params.Overloads)
	a.Params.Overloads.CheckForUnused()

	if record.Config.Value("label") == "" {
		record.Config.Set("label", record.Requirements.Value("code"))
	}
	record.Metadata.Set("benchmark_repo", s.BenchmarkRepo)

	run := &benchRun{
		label:       record.Config.Value("label"),
		record:      record,
		scriptName:  LocalScript,
		buildReport: record.Metadata.Value("build_report"),
	}

	run.benchTemplate, err = a.benchTemplate(record)
	if err != nil {
		return nil, err
	}
	record.Metadata.Set("template", run.benchTemplate)

	switch s.BenchMode {
	case settings.ModeSched:
		if err := s.CheckRequired(); err != nil {
			return nil, err
		}
		code := record.Requirements.Value("code")
		if code == "" {
			code = run.label
		}
		run.jobLabel = code + sched.BenchSuffix
		run.scriptName = SchedScript
		run.schedTemplate, err = provenance.FindExact(s.SchedTemplate(), filepath.Join(s.TemplatePath, schedTemplateDir), s.TemplatePath)
		if err != nil {
			return nil, err
		}
	case settings.ModeLocal:
		if !s.DryRun && !s.AllowLocalMPI {
			return nil, errors.WithStack(&bencherrors.ErrConfiguration{
				Key:     "allow_local_mpi",
				Value:   "false",
				Message: "MPI execution is not allowed on this host",
			})
		}
	}
	record.Metadata.Set("job_script", run.scriptName)

	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("inputs of %s:\n%s", run.label, litter.Sdump(record.Flatten()))
	}

	run.spec, err = sweep.SpecFromRecord(record)
	if err != nil {
		return nil, err
	}

	var seed []string
	if s.BenchMode == settings.ModeSched && !s.DryRun {
		seed, err = a.Params.Scheduler.ActiveJobs(ctx, sched.BenchSuffix)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to list active jobs")
		}
		if len(seed) > 0 {
			log.Infof("%d benchmark job(s) already in flight", len(seed))
		}
		run.buildJobID, err = a.activeBuildJob(ctx, run)
		if err != nil {
			return nil, err
		}
	}
	run.tracker, err = jobdep.NewTracker(seed, record.Runtime.Value("max_running_jobs"))
	if err != nil {
		return nil, err
	}

	var launcher sweep.Launcher = sweep.SchedLauncher{MPI: s.SchedMPI}
	if s.BenchMode == settings.ModeLocal {
		launcher = sweep.LocalLauncher{MPI: s.LocalMPI}
	}
	run.generator = &sweep.Generator{
		System:    s.System,
		Timestamp: timestamp,
		BasePath:  s.CurrentPath,
		Evaluator: expr.New(),
		Launcher:  launcher,
	}
	return run, nil
}

// activeBuildJob returns the job id recorded in the build report of run when that build
// job is still queued or running, and empty otherwise.
func (a *App) activeBuildJob(ctx context.Context, run *benchRun) (string, error) {
	if run.buildReport == "" {
		return "", nil
	}
	if _, err := os.Stat(run.buildReport); os.IsNotExist(err) {
		return "", nil
	}
	build, err := report.Read(run.buildReport)
	if err != nil {
		log.WithError(err).Warnf("unable to read build report %s", run.buildReport)
		return "", nil
	}
	jobID := build.Sections[report.SectionBuild].Value("jobid")
	if jobID == "" || jobdep.IsSentinel(jobID) {
		return "", nil
	}
	active, err := a.Params.Scheduler.ActiveJobs(ctx, sched.BuildSuffix)
	if err != nil {
		return "", errors.WithMessage(err, "failed to list active build jobs")
	}
	if !goslices.Contains(active, jobID) {
		return "", nil
	}
	fmt.Fprintf(a.Out, "%s build job %s is still running, creating dependency\n", run.label, jobID)
	return jobID, nil
}

// benchTemplate finds the script template of record: metadata.template when set, otherwise
// <cfg label>.template below the template path.
func (a *App) benchTemplate(record *cfg.Record) (string, error) {
	s := a.Params.Settings
	name := record.Metadata.Value("template")
	if name == "" {
		name = record.Metadata.Value("cfg_label") + ".template"
	}
	return provenance.FindExact(name, filepath.Join(s.TemplatePath, benchTemplateDir), s.TemplatePath)
}

func (a *App) sweep(ctx context.Context, run *benchRun, summary *Summary) {
	total := run.spec.Size()
	for _, p := range run.spec.Points() {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warnf("sweep of %s stopped before script %d of %d", run.label, p.Index+1, total)
			return
		}
		fmt.Fprintf(a.Out, "\nBuilding script %d of %d: %s nodes, %s threads, %s ranks per node.\n",
			p.Index+1, total, p.Nodes, p.Threads, p.RanksPerNode)

		instance, err := run.generator.Materialize(p, run.record)
		if err != nil {
			a.Params.Metrics.RecordInstance(run.label, outcomeFor(err))
			summary.fail(p.Progress(), "", err)
			continue
		}
		outcome, err := a.runInstance(ctx, run, instance)
		a.Params.Metrics.RecordInstance(run.label, outcome)
		if err != nil {
			summary.fail(p.Progress(), instance.WorkingDir, err)
			continue
		}
		summary.succeed(instance)
	}
}

// runInstance writes the working directory of instance and hands its script to the
// scheduler or the local shell. When that fails the working directory is removed again.
func (a *App) runInstance(ctx context.Context, run *benchRun, instance *sweep.Instance) (string, error) {
	s := a.Params.Settings
	rec := instance.Record
	fmt.Fprintf(a.Out, "Benchmark working directory:\n>  %s\n", a.relPath(instance.WorkingPath))

	registry := results.NewRegistry(s.CurrentPath)
	if err := a.stage(run, instance, registry); err != nil {
		a.rollback(registry)
		return outcomeFor(err), err
	}
	jobID, outcome, err := a.dispatch(ctx, run, instance)
	if err != nil {
		a.rollback(registry)
		return outcome, err
	}
	registry.Reset()
	instance.JobID = jobID
	run.tracker.Record(jobID)

	if rec.Config.Value("output_file") == "" {
		rec.Config.Set("output_file", jobID+".out")
	}
	checkRanksPerGPU(rec.Runtime)
	fmt.Fprintf(a.Out, "Output file:\n>  %s\n", a.relPath(filepath.Join(instance.WorkingPath, rec.Config.Value("output_file"))))

	bench := report.Bench{
		BenchPath:  instance.WorkingPath,
		System:     s.System,
		LaunchNode: a.Params.Hostname,
		Code:       rec.Config.Value("label"),
		Nodes:      rec.Runtime.Value("nodes"),
		Ranks:      rec.Runtime.Value("ranks_per_node"),
		Threads:    rec.Runtime.Value("threads"),
		Dataset:    rec.Config.Value("dataset"),
		StartTime:  a.Params.Clock.Now().Format(startTimeLayout),
		JobScript:  run.scriptName,
		JobID:      jobID,
		SessionID:  run.sessionID,
		OutputFile: rec.Config.Value("output_file"),
		Result:     rec.Result,
	}
	if err := report.Write(filepath.Join(instance.WorkingPath, s.BenchReportFile), run.buildReport, bench); err != nil {
		// The job is already queued, so the instance stands.
		log.WithError(err).WithField("working_dir", instance.WorkingDir).Warn("failed to write bench report")
	}
	return outcome, nil
}

// stage creates the working directory with the job script and the provenance files.
func (a *App) stage(run *benchRun, instance *sweep.Instance, registry *results.Registry) error {
	s := a.Params.Settings
	if err := os.MkdirAll(instance.WorkingPath, 0o755); err != nil {
		return errors.WithStack(err)
	}
	registry.Track(instance.WorkingPath)

	templates := []string{run.benchTemplate}
	if run.schedTemplate != "" {
		templates = []string{run.schedTemplate, run.benchTemplate}
	}
	if err := render.Render(filepath.Join(instance.WorkingPath, run.scriptName), a.templateVars(run, instance), templates...); err != nil {
		return err
	}

	provenanceDir := filepath.Join(instance.WorkingPath, provenance.Dir)
	if err := os.MkdirAll(provenanceDir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	installs := [][2]string{
		{instance.Record.Metadata.Value("cfg_file"), ProvenanceCfg},
		{run.benchTemplate, ProvenanceTemplate},
	}
	if s.BenchMode == settings.ModeSched {
		if s.Sched.Cfg != "" {
			installs = append(installs, [2]string{s.Sched.Cfg, ""})
		}
		installs = append(installs, [2]string{run.schedTemplate, ""})
	}
	for _, install := range installs {
		if install[0] == "" {
			continue
		}
		if _, err := provenance.Install(provenanceDir, install[0], install[1]); err != nil {
			return err
		}
	}
	return nil
}

// dispatch dry runs, submits or starts the script of instance.
func (a *App) dispatch(ctx context.Context, run *benchRun, instance *sweep.Instance) (jobID, outcome string, err error) {
	s := a.Params.Settings
	rec := instance.Record

	if s.DryRun {
		fmt.Fprintf(a.Out, "This was a dryrun, skipping exec step. Script created at:\n>  %s\n",
			a.relPath(filepath.Join(instance.WorkingPath, run.scriptName)))
		return jobdep.DryRunJobID, metrics.OutcomeDryRun, nil
	}

	if s.BenchMode == settings.ModeSched {
		deps := []string{run.buildJobID}
		if id, ok := run.tracker.Dependency(); ok {
			fmt.Fprintf(a.Out, "Max running jobs reached, creating dependency on job %s\n", id)
			deps = append(deps, id)
			a.Params.Metrics.RecordDependency(run.label)
		}
		dependency := a.Params.Scheduler.DependencyToken(deps...)
		jobID, err := a.Params.Scheduler.Submit(ctx, dependency, instance.WorkingPath, run.scriptName)
		if err != nil {
			return "", metrics.OutcomeSubmissionError, err
		}
		fmt.Fprintf(a.Out, "Submitted job %s\n", jobID)
		return jobID, metrics.OutcomeSubmitted, nil
	}

	// A local run has no scheduler capturing stdout.
	if rec.Config.Value("output_file") == "" {
		rec.Config.Set("output_file", s.OutputFile)
	}
	if err := a.Params.Local.RunDetached(ctx, instance.WorkingPath, run.scriptName, rec.Config.Value("output_file")); err != nil {
		return "", metrics.OutcomeSubmissionError, errors.WithStack(&bencherrors.ErrSubmission{
			WorkingDir: instance.WorkingDir,
			Cause:      err,
		})
	}
	return jobdep.LocalJobID, metrics.OutcomeLocal, nil
}

// templateVars are the values available to script templates: settings, then the
// flattened instance record, then per run values.
func (a *App) templateVars(run *benchRun, instance *sweep.Instance) map[string]string {
	vars := a.Params.Settings.Values()
	for k, v := range instance.Record.Flatten() {
		vars[k] = v
	}
	vars["job_label"] = run.jobLabel
	vars["session_id"] = run.sessionID
	return vars
}

func (a *App) rollback(registry *results.Registry) {
	if err := registry.Rollback(); err != nil {
		log.WithError(err).Warn("failed to clean up after instance")
	}
}

func (a *App) writeMetrics() {
	if err := a.Params.Metrics.WriteTextfile(a.Params.Settings.MetricsTextfile); err != nil {
		log.WithError(err).Warn("failed to write metrics textfile")
	}
}

func (a *App) relPath(path string) string {
	rel, err := filepath.Rel(a.Params.Settings.CurrentPath, path)
	if err != nil {
		return path
	}
	return rel
}

func outcomeFor(err error) string {
	switch bencherrors.KindFromError(err) {
	case bencherrors.KindEvaluation:
		return metrics.OutcomeEvaluationError
	case bencherrors.KindSubmission:
		return metrics.OutcomeSubmissionError
	default:
		return metrics.OutcomeFailed
	}
}

func checkRanksPerGPU(runtime cfg.Section) {
	gpus := runtime.Value("gpus")
	if gpus == "" || gpus == "0" {
		return
	}
	if rpn := runtime.Value("ranks_per_node"); rpn != gpus {
		log.Warnf("MPI ranks per node (%s) does not equal GPUs per node (%s)", rpn, gpus)
	}
}
