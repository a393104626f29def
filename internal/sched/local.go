package sched

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LocalShell runs job scripts with a shell in the background.
type LocalShell struct {
	// Shell defaults to bash.
	Shell string
}

// RunDetached starts the script and returns once the process has started. The process is
// reaped in the background; ctx does not stop it.
func (l *LocalShell) RunDetached(_ context.Context, workingPath, scriptName, outputFile string) error {
	shell := l.Shell
	if shell == "" {
		shell = "bash"
	}
	out, err := os.OpenFile(filepath.Join(workingPath, outputFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	cmd := exec.Command(shell, scriptName)
	cmd.Dir = workingPath
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		out.Close()
		return errors.Wrapf(err, "starting %s in %s", scriptName, workingPath)
	}
	log.WithField("pid", cmd.Process.Pid).Debugf("started %s", scriptName)
	go func() {
		if err := cmd.Wait(); err != nil {
			log.WithError(err).Warnf("%s exited with an error", filepath.Join(workingPath, scriptName))
		}
		out.Close()
	}()
	return nil
}
