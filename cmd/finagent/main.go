package main

import (
	"fmt"
	"os"

	"github.com/malbeclabs/finagent/internal/cli"
	"github.com/malbeclabs/finagent/pkg/metrics"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
	os.Exit(int(cli.Run(fmt.Sprintf("%s (commit: %s, date: %s)", version, commit, date))))
}
