package main

import (
	"os"

	"github.com/benchtool/benchtool/cmd/benchctl/cmd"
	"github.com/benchtool/benchtool/internal/common/logging"
)

// Config is handled by cmd/params.go
func main() {
	logging.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
