package builder

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
)

const traditionalName = "Traditional Builder"

// EnginePlaceholder marks where a wrapper command receives the engine.
const EnginePlaceholder = "%E"

// DefaultCommandLatexmk is the cross-platform wrapper invocation.
var DefaultCommandLatexmk = []string{"latexmk", "-cd", "-f", "-%E", "-interaction=nonstopmode", "-synctex=1"}

// DefaultCommandTexify is the MiKTeX wrapper invocation.
var DefaultCommandTexify = []string{"texify", "-b", "-p", "--engine=%E", `--tex-option="--synctex=1"`}

const noEngineSelectionMessage = "Your custom command does not allow the engine to be selected"

type traditionalPhase int

const (
	traditionalStart traditionalPhase = iota
	traditionalMain
	traditionalFallback
	traditionalCrossReferences
	traditionalDone
)

// Traditional hands the multi-pass work to a wrapper tool.
type Traditional struct {
	Base

	texliveonfly string
	command      []string
	program      string
	engineStatus string
	phase        traditionalPhase
}

// NewTraditional creates a Traditional builder.
func NewTraditional(s Settings) (*Traditional, error) {
	base, err := newBase(traditionalName, s)
	if err != nil {
		return nil, err
	}
	t := &Traditional{Base: base, texliveonfly: s.Builder.Texliveonfly}
	if t.texliveonfly == "" {
		t.texliveonfly = "texliveonfly"
	}

	template := s.Builder.Command
	if len(template) == 0 {
		if distro := s.Platform.distro(); distro == DistroMiKTeX {
			template = DefaultCommandTexify
		} else {
			template = DefaultCommandLatexmk
		}
	}
	t.command, t.engineStatus = t.buildCommand(template)
	t.program = t.command[0]
	t.decide = t.step
	return t, nil
}

// Command returns the substituted wrapper invocation without the root file.
func (t *Traditional) Command() []string {
	return slices.Clone(t.command)
}

// buildCommand substitutes the engine into a copy of template and appends
// directory, job name and option flags. The returned message reports the
// engine selection.
func (t *Traditional) buildCommand(template []string) ([]string, string) {
	cmd := slices.Clone(template)
	texify := cmd[0] == "texify"
	latexmk := cmd[0] == "latexmk"

	engineUsed := slices.ContainsFunc(cmd, func(c string) bool {
		return strings.Contains(c, EnginePlaceholder)
	})

	var message string
	if !engineUsed {
		message = noEngineSelectionMessage
		slog.Warn(noEngineSelectionMessage, logfields.Builder(t.name), logfields.Program(cmd[0]))
	} else {
		message = fmt.Sprintf("Engine: %s.", t.engine)
		engine := wrapperEngine(t.engine, texify, latexmk)
		dashed := "-" + engine
		if !texify && engine == EnginePDFLaTeX {
			dashed = "-pdf"
		}
		for i, c := range cmd {
			c = strings.ReplaceAll(c, "-"+EnginePlaceholder, dashed)
			cmd[i] = strings.ReplaceAll(c, EnginePlaceholder, engine)
		}
	}

	if latexmk {
		if t.auxDirectory != "" && t.auxDirectory != t.outputDirectory {
			cmd = append(cmd, "--aux-directory="+t.auxDirectory)
		}
		if t.outputDirectory != "" {
			cmd = append(cmd, "--output-directory="+t.outputDirectory)
		}
		if t.jobName != t.baseName {
			cmd = append(cmd, "--jobname="+t.jobName)
		}
	}
	if texify || latexmk {
		for _, option := range t.options {
			if texify {
				cmd = append(cmd, `--tex-option="`+option+`"`)
			} else {
				cmd = append(cmd, "-latexoption="+option)
			}
		}
	}
	return cmd, message
}

// wrapperEngine translates an engine identifier into the spelling a wrapper
// accepts: texify wants pdftex/xetex/luatex, latexmk wants the latex names.
func wrapperEngine(engine string, texify, latexmk bool) string {
	switch {
	case texify:
		return strings.ReplaceAll(engine, "la", "")
	case latexmk && !strings.Contains(engine, "la"):
		if cmd, ok := latexEngines[engine]; ok {
			return cmd
		}
		slog.Warn("Unknown engine for latexmk, using pdflatex", logfields.Engine(engine))
		return EnginePDFLaTeX
	default:
		return engine
	}
}

func (t *Traditional) step() (*Step, error) {
	for {
		switch t.phase {
		case traditionalStart:
			t.phase = traditionalMain
			return statusStep(t.engineStatus), nil

		case traditionalMain:
			t.phase = traditionalFallback
			return t.mainStep(), nil

		case traditionalFallback:
			t.phase = traditionalCrossReferences
			if t.settings.Platform.goos() != "windows" && DiagnosticPatterns.Has(t.out, PatternFileNotFound) {
				return t.fallbackStep(), nil
			}

		case traditionalCrossReferences:
			t.phase = traditionalDone
			if DiagnosticPatterns.Has(t.out, PatternRerunCrossRefs) {
				return t.mainStep(), nil
			}

		default:
			return nil, nil
		}
	}
}

func (t *Traditional) mainStep() *Step {
	args := append(slices.Clone(t.command), t.texName)
	return &Step{
		Args:    args,
		Message: fmt.Sprintf("Invoking %s... ", t.program),
		Dir:     t.texDir,
		Tool:    t.program,
	}
}

func (t *Traditional) fallbackStep() *Step {
	return &Step{
		Args: []string{
			t.texliveonfly,
			"-interaction=nonstopmode",
			"-synctex=1",
			"--jobname=" + t.jobName,
			t.texName,
		},
		Message: fmt.Sprintf("running %s", t.texliveonfly),
		Dir:     t.texDir,
		Tool:    t.texliveonfly,
	}
}
