// Package logging configures the process-wide logrus logger used by benchctl.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/promrus"
)

// ConfigureCommandLineLogging sets up logging suitable for a command line tool: plain text,
// full timestamps, written to stdout.
func ConfigureCommandLineLogging() {
	commandLineFormatter := new(log.TextFormatter)
	commandLineFormatter.ForceColors = true
	commandLineFormatter.FullTimestamp = true
	log.SetFormatter(commandLineFormatter)
	log.SetOutput(os.Stdout)
}

// ConfigureLogging points the standard logger at out using the requested format, which is
// either "text" or "json".
func ConfigureLogging(out io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format: %s.  Valid formats are text, json", format)
	}
	log.SetOutput(out)
	return nil
}

// SetLevel parses level and applies it to the standard logger.
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	l, err := log.ParseLevel(level)
	if err != nil {
		return errors.WithStack(err)
	}
	log.SetLevel(l)
	return nil
}

// EnableMetrics counts log messages per level in the default prometheus registry.
func EnableMetrics() error {
	hook, err := promrus.NewPrometheusHook()
	if err != nil {
		return errors.WithStack(err)
	}
	log.AddHook(hook)
	return nil
}
