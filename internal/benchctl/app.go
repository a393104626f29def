package benchctl

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/benchctl/build"
	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/bencherrors"
	"github.com/benchtool/benchtool/internal/common/util"
	"github.com/benchtool/benchtool/internal/metrics"
	"github.com/benchtool/benchtool/internal/sched"
	"github.com/benchtool/benchtool/internal/settings"
)

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer
}

// Params struct holds all user-customizable parameters and the adapters built from them.
// initParams in cmd/benchctl fills it in from flags, the settings file and the
// environment; tests fill it in directly.
type Params struct {
	Settings *settings.Settings
	// Overloads are applied to settings first and to every benchmark record after.
	Overloads *cfg.Overloads
	Loader    cfg.Loader
	Scheduler sched.Scheduler
	Local     sched.LocalRunner
	Clock     util.Clock
	Metrics   *metrics.Metrics
	// Hostname of the node the sweep is launched from.
	Hostname string
}

// New instantiates an App with default parameters, including standard output.
func New() *App {
	return &App{
		Params: &Params{
			Overloads: cfg.NewOverloads(),
			Clock:     &util.DefaultClock{},
			Metrics:   metrics.New(),
			Hostname:  LaunchNode(),
		},
		Out: os.Stdout,
	}
}

func (a *App) validateParams() error {
	p := a.Params
	if p.Settings == nil {
		return errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "Settings",
			Value:   p.Settings,
			Message: "not provided",
		})
	}
	if p.Loader == nil {
		return errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "Loader",
			Value:   p.Loader,
			Message: "not provided",
		})
	}
	if p.Settings.BenchMode == settings.ModeSched && p.Scheduler == nil {
		return errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "Scheduler",
			Value:   p.Scheduler,
			Message: "required in scheduler mode",
		})
	}
	if p.Settings.BenchMode == settings.ModeLocal && p.Local == nil {
		return errors.WithStack(&bencherrors.ErrInvalidArgument{
			Name:    "Local",
			Value:   p.Local,
			Message: "required in local mode",
		})
	}
	if p.Overloads == nil {
		p.Overloads = cfg.NewOverloads()
	}
	if p.Clock == nil {
		p.Clock = &util.DefaultClock{}
	}
	if p.Metrics == nil {
		p.Metrics = metrics.New()
	}
	return nil
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// LaunchNode returns the short name of this host: the first two fields of a fully
// qualified name.
func LaunchNode() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return shortHostname(hostname)
}

func shortHostname(hostname string) string {
	fields := strings.Split(hostname, ".")
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, ".")
}
