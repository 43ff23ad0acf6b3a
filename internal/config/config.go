package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/texbuild/internal/builder"
	"git.home.luguber.info/inful/texbuild/internal/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "texbuild.yaml"

// Config represents the application configuration
type Config struct {
	Build    BuildConfig    `yaml:"build"`
	Builder  BuilderConfig  `yaml:"builder_settings"`
	Platform PlatformConfig `yaml:"platform_settings"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	History  HistoryConfig  `yaml:"history"`
	Notify   NotifyConfig   `yaml:"notify"`
	Watch    WatchConfig    `yaml:"watch"`
}

// BuildConfig describes the document to build.
type BuildConfig struct {
	RootFile        string   `yaml:"root_file"`
	Builder         string   `yaml:"builder"` // basic|traditional
	Engine          string   `yaml:"engine"`
	OutputDirectory string   `yaml:"output_directory,omitempty"`
	AuxDirectory    string   `yaml:"aux_directory,omitempty"`
	JobName         string   `yaml:"jobname,omitempty"`
	Options         []string `yaml:"options,omitempty"`
}

// BuilderConfig holds builder_settings.
type BuilderConfig struct {
	Command            Command `yaml:"command,omitempty"`
	Bibtex             string  `yaml:"bibtex,omitempty"`
	Texliveonfly       string  `yaml:"texliveonfly,omitempty"`
	DisplayLog         bool    `yaml:"display_log"`
	MaxDirectoryPasses int     `yaml:"max_directory_passes,omitempty"`
}

// PlatformConfig holds platform_settings.
type PlatformConfig struct {
	// Distro is texlive or miktex. Unset picks the OS default; an explicit
	// empty value selects texify like miktex.
	Distro  *string `yaml:"distro,omitempty"`
	TexPath string  `yaml:"texpath,omitempty"`
	// UseTexPath overrides PATH for every invocation; defaults to true.
	UseTexPath *bool `yaml:"use_texpath,omitempty"`
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Textfile   string `yaml:"textfile,omitempty"`    // written after each build
	ListenAddr string `yaml:"listen_addr,omitempty"` // served while watching
}

// HistoryConfig controls the SQLite build history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NotifyConfig controls NATS build notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Patterns []string      `yaml:"patterns,omitempty"`
	Debounce time.Duration `yaml:"debounce,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"` // periodic rebuild; 0 disables
}

// Command is a wrapper invocation given either as one string or as a list.
type Command []string

// UnmarshalYAML accepts a shell-style string or a sequence of strings.
func (c *Command) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		args, err := ParseCommand(value.Value)
		if err != nil {
			return err
		}
		*c = args
		return nil
	case yaml.SequenceNode:
		var args []string
		if err := value.Decode(&args); err != nil {
			return err
		}
		*c = args
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list of strings", value.Line)
	}
}

// ParseCommand splits a command string the way a POSIX shell would.
func ParseCommand(s string) ([]string, error) {
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", s, err)
	}
	return args, nil
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to read config file").
			WithContext("path", configPath)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to unmarshal config").
			WithContext("path", configPath)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOptional behaves like Load but returns defaults when the file is absent.
func LoadOptional(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Debug("No configuration file, using defaults", "path", configPath)
		loadEnvFile()
		return Default(), nil
	}
	return Load(configPath)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Build.Builder == "" {
		cfg.Build.Builder = builder.NameTraditional
	}
	if cfg.Build.Engine == "" {
		cfg.Build.Engine = builder.EnginePDFTeX
	}
	if cfg.Builder.MaxDirectoryPasses == 0 {
		cfg.Builder.MaxDirectoryPasses = builder.DefaultMaxDirectoryPasses
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".texbuild/history.db"
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "texbuild.builds"
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{"**/*.tex", "**/*.bib", "**/*.sty", "**/*.cls", "**/*.bst"}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = time.Second
	}
}

// DistroOrDefault returns the distribution handed to the builder. An
// empty result lets the builder choose by OS.
func (p PlatformConfig) DistroOrDefault() string {
	switch {
	case p.Distro == nil:
		return ""
	case *p.Distro == "":
		return builder.DistroMiKTeX
	default:
		return *p.Distro
	}
}

// UseTexPathOrDefault reports whether invocations get the tex search path.
func (p PlatformConfig) UseTexPathOrDefault() bool {
	return p.UseTexPath == nil || *p.UseTexPath
}

// Validate checks the configuration before a build starts.
func (c *Config) Validate() error {
	if c.Build.RootFile == "" {
		return errors.ConfigRequired("build.root_file")
	}
	if c.Builder.MaxDirectoryPasses < 0 {
		return errors.ValidationFailed("builder_settings.max_directory_passes", "must not be negative")
	}
	if !builder.Supported(c.Build.Builder) {
		return errors.UnsupportedBuilder(c.Build.Builder).WithContext("supported", strings.Join(builder.Names(), ", "))
	}
	switch d := c.Platform.DistroOrDefault(); d {
	case "", builder.DistroTeXLive, builder.DistroMiKTeX:
	default:
		return errors.ValidationFailed("platform_settings.distro", fmt.Sprintf("unknown distribution %q", d))
	}
	if c.Watch.Debounce < 0 || c.Watch.Interval < 0 {
		return errors.ValidationFailed("watch", "durations must not be negative")
	}
	return nil
}

// Settings converts the configuration into builder settings.
func (c *Config) Settings() builder.Settings {
	return builder.Settings{
		RootFile:        c.Build.RootFile,
		Engine:          c.Build.Engine,
		Options:         append([]string(nil), c.Build.Options...),
		OutputDirectory: c.Build.OutputDirectory,
		AuxDirectory:    c.Build.AuxDirectory,
		JobName:         c.Build.JobName,
		Builder: builder.BuilderSettings{
			Command:            append([]string(nil), c.Builder.Command...),
			Bibtex:             c.Builder.Bibtex,
			Texliveonfly:       c.Builder.Texliveonfly,
			DisplayLog:         c.Builder.DisplayLog,
			MaxDirectoryPasses: c.Builder.MaxDirectoryPasses,
		},
		Platform: builder.PlatformSettings{
			Distro:  c.Platform.DistroOrDefault(),
			TexPath: c.Platform.TexPath,
		},
	}
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationFailed("path", fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath))
	}

	example := Config{
		Build: BuildConfig{
			RootFile:        "main.tex",
			Builder:         builder.NameBasic,
			Engine:          builder.EnginePDFTeX,
			OutputDirectory: "build",
			AuxDirectory:    "build",
		},
		Builder: BuilderConfig{
			Bibtex:     "bibtex",
			DisplayLog: false,
		},
		Platform: PlatformConfig{Distro: ptr(builder.DistroTeXLive)},
		History:  HistoryConfig{Enabled: true, Path: ".texbuild/history.db"},
		Watch: WatchConfig{
			Patterns: []string{"**/*.tex", "**/*.bib"},
			Debounce: time.Second,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to write config file").
			WithContext("path", configPath)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
