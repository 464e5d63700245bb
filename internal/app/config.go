package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/spf13/afero"
)

// DefaultConfigFile is read from the working directory when no config file is
// named explicitly. Its absence is not an error.
const DefaultConfigFile = ".hashgrid.toml"

// Graph export formats.
const (
	GraphTree = "tree"
	GraphDOT  = "dot"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string `toml:"grid"`
	WorkDir  string `toml:"work_dir"`

	Shell      string            `toml:"shell"`
	Backend    string            `toml:"backend"`
	Container  string            `toml:"container"`
	JobTimeout time.Duration     `toml:"job_timeout"`
	Workers    int               `toml:"workers"`
	Params     map[string]string `toml:"params"`
	EnvFile    string            `toml:"env_file"`

	EventsURL       string `toml:"events_url"`
	HealthcheckPort int    `toml:"healthcheck_port"`
	LogFormat       string `toml:"log_format"`
	LogLevel        string `toml:"log_level"`

	// Run modes are per invocation and never read from the file.
	Target string `toml:"-"`
	Plan   bool   `toml:"-"`
	Graph  string `toml:"-"`
}

// DefaultConfig returns the built-in defaults, the lowest configuration layer.
func DefaultConfig() Config {
	return Config{
		WorkDir:   ".hashgrid",
		Shell:     backend.DefaultShell,
		Backend:   string(backend.KindLocal),
		Container: string(backend.ContainerNone),
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// LoadConfigFile decodes a TOML file over cfg. Keys absent from the file keep
// their current values. A missing file is an error only when required is set.
func LoadConfigFile(fsys afero.Fs, path string, required bool, cfg *Config) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// NewConfig validates cfg and returns a normalized copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkDir == "" {
		return nil, errors.New("WorkDir is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid workers %d: must be 0 (unbounded) or positive", cfg.Workers)
	}
	if cfg.JobTimeout < 0 {
		return nil, fmt.Errorf("invalid job timeout %s: must not be negative", cfg.JobTimeout)
	}
	if cfg.Plan && cfg.Graph != "" {
		return nil, errors.New("plan and graph output are mutually exclusive")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	switch cfg.Graph = strings.ToLower(cfg.Graph); cfg.Graph {
	case "", GraphTree, GraphDOT:
	default:
		return nil, fmt.Errorf("invalid graph format %q: must be %q or %q", cfg.Graph, GraphTree, GraphDOT)
	}

	if _, err := backend.ParseKind(cfg.Backend); err != nil {
		return nil, err
	}
	if _, err := backend.ParseContainerKind(cfg.Container); err != nil {
		return nil, err
	}

	return &cfg, nil
}
