package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/hashgrid/internal/app"
	"github.com/spf13/afero"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// paramFlag collects repeated -param key=value flags.
type paramFlag map[string]string

func (p paramFlag) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + p[k]
	}
	return strings.Join(pairs, ",")
}

func (p paramFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	p[k] = v
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(afero.NewOsFs(), args, output)
}

func parse(fsys afero.Fs, args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("hashgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
hashgrid - A content-addressed build and pipeline executor.

Usage:
  hashgrid [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options are layered over the config file (default `+app.DefaultConfigFile+`), which
is layered over the built-in defaults.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := app.DefaultConfig()
	params := paramFlag{}

	configFlag := flagSet.String("config", "", "Path to a TOML config file. Defaults to "+app.DefaultConfigFile+" if present.")
	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	workDirFlag := flagSet.String("work-dir", defaults.WorkDir, "Work root holding one directory per derivation hash.")
	shellFlag := flagSet.String("shell", defaults.Shell, "Interpreter command line for scripts, e.g. 'bash -eu'.")
	workersFlag := flagSet.Int("workers", defaults.Workers, "Maximum concurrent jobs per level. 0 is unbounded.")
	backendFlag := flagSet.String("backend", defaults.Backend, "HPC runtime. Options: 'local', 'lsf', 'slurm'.")
	containerFlag := flagSet.String("container", defaults.Container, "Container runtime for derivations with an image. Options: 'none', 'docker', 'podman'.")
	timeoutFlag := flagSet.Duration("job-timeout", defaults.JobTimeout, "Time limit for jobs without a time hint. 0 is unlimited.")
	envFileFlag := flagSet.String("env-file", "", "Dotenv file whose variables are added to every job.")
	targetFlag := flagSet.String("target", "", "Run only this derivation (label, name, or hash) and its dependencies.")
	planFlag := flagSet.Bool("plan", false, "Print the execution plan as YAML and exit without running.")
	graphFlag := flagSet.String("graph", "", "Print the process graph and exit. Options: 'tree' or 'dot'.")
	eventsFlag := flagSet.String("events-url", "", "socket.io endpoint that receives run events.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.Var(params, "param", "Expression parameter as key=value, available as param.<key>. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := defaults
	configPath, required := app.DefaultConfigFile, false
	if *configFlag != "" {
		configPath, required = *configFlag, true
	}
	if err := app.LoadConfigFile(fsys, configPath, required, &cfg); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	// Only flags given on the command line override the file.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "work-dir":
			cfg.WorkDir = *workDirFlag
		case "shell":
			cfg.Shell = *shellFlag
		case "workers":
			cfg.Workers = *workersFlag
		case "backend":
			cfg.Backend = *backendFlag
		case "container":
			cfg.Container = *containerFlag
		case "job-timeout":
			cfg.JobTimeout = *timeoutFlag
		case "env-file":
			cfg.EnvFile = *envFileFlag
		case "events-url":
			cfg.EventsURL = *eventsFlag
		case "healthcheck-port":
			cfg.HealthcheckPort = *healthPortFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		}
	})
	cfg.Params = mergeParams(cfg.Params, params)
	cfg.Target, cfg.Plan, cfg.Graph = *targetFlag, *planFlag, *graphFlag

	switch {
	case *gridFlag != "":
		cfg.GridPath = *gridFlag
	case *gFlag != "":
		cfg.GridPath = *gFlag
	case flagSet.NArg() > 0:
		cfg.GridPath = flagSet.Arg(0)
	}
	slog.Debug("Grid path determined.", "path", cfg.GridPath)

	if cfg.GridPath == "" {
		slog.Debug("No grid path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "grid", config.GridPath, "workDir", config.WorkDir)
	return config, false, nil
}

func mergeParams(file map[string]string, flags paramFlag) map[string]string {
	if len(file) == 0 && len(flags) == 0 {
		return nil
	}
	out := make(map[string]string, len(file)+len(flags))
	for k, v := range file {
		out[k] = v
	}
	for k, v := range flags {
		out[k] = v
	}
	return out
}
