// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tomtom215/pubrec/internal/config"
	"github.com/tomtom215/pubrec/internal/logging"
)

// app holds state shared by all commands.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string

	cfg *config.Config
}

// newRootCmd builds the command tree writing results to out and logs,
// progress and errors to errOut.
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "pubrec",
		Short:         "Recommend public pages from shared memberships",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	addGlobalFlags(root.PersistentFlags(), a)

	root.AddCommand(
		newRecommendCmd(a),
		newResolveCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet, a *app) {
	fs.StringVar(&a.configPath, "config", os.Getenv("PUBREC_CONFIG"), "path to a YAML config file")
	fs.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	fs.StringVar(&a.logFormat, "log-format", "", "log format: json or console")
	fs.StringVar(&a.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address during the run")
}

// setup loads configuration and initializes logging.
func (a *app) setup(fs *pflag.FlagSet) error {
	cfg, err := config.LoadWithKoanf(a.configPath)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return err
	}

	if fs.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Enabled = a.metricsAddr != ""
		cfg.Metrics.ListenAddr = a.metricsAddr
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: a.errOut,
	})

	a.cfg = cfg
	return nil
}

// fail prints err to the error stream and returns it.
func (a *app) fail(err error) error {
	fmt.Fprintf(a.errOut, "Error: %v\n", err)
	return err
}
