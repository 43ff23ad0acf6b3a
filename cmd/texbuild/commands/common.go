package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuild/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"texbuild.yaml" env:"TEXBUILD_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Build a LaTeX document"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild the document whenever its sources change"`
	History HistoryCmd `cmd:"" help:"List recorded builds"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

// parseLogLevel honours --verbose first, then TEXBUILD_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TEXBUILD_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BuildFlags are shared by commands that run builds. Set flags override the
// configuration file.
type BuildFlags struct {
	TexRoot         string   `arg:"" optional:"" name:"tex-root" help:"Root .tex file (overrides build.root_file)" type:"path"`
	Builder         string   `short:"b" help:"Builder strategy (basic|traditional)"`
	Engine          string   `short:"e" help:"TeX engine (pdflatex, xelatex, lualatex, ...)"`
	OutputDirectory string   `short:"o" name:"output-directory" help:"Directory for final output files"`
	AuxDirectory    string   `name:"aux-directory" help:"Directory for auxiliary files"`
	JobName         string   `name:"jobname" help:"Job name (defaults to the root file's base name)"`
	Option          []string `name:"option" help:"Extra option passed to the engine (repeatable)"`
	TexPath         string   `name:"texpath" help:"Search path for TeX binaries; may reference $PATH"`
	DisplayLog      bool     `name:"display-log" help:"Echo full tool output after each step"`
}

// Apply overlays the set flags onto cfg.
func (f *BuildFlags) Apply(cfg *config.Config) {
	if f.TexRoot != "" {
		cfg.Build.RootFile = f.TexRoot
	}
	if f.Builder != "" {
		cfg.Build.Builder = f.Builder
	}
	if f.Engine != "" {
		cfg.Build.Engine = f.Engine
	}
	if f.OutputDirectory != "" {
		cfg.Build.OutputDirectory = f.OutputDirectory
	}
	if f.AuxDirectory != "" {
		cfg.Build.AuxDirectory = f.AuxDirectory
	}
	if f.JobName != "" {
		cfg.Build.JobName = f.JobName
	}
	if len(f.Option) > 0 {
		cfg.Build.Options = append(cfg.Build.Options, f.Option...)
	}
	if f.TexPath != "" {
		cfg.Platform.TexPath = f.TexPath
	}
	if f.DisplayLog {
		cfg.Builder.DisplayLog = true
	}
}

// loadConfig reads the optional config file, applies flags and validates.
func loadConfig(path string, flags *BuildFlags) (*config.Config, error) {
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return nil, err
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
