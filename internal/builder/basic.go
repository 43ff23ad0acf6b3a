package builder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/texbuild/internal/logfields"
	"git.home.luguber.info/inful/texbuild/internal/process"
)

const basicName = "Basic Builder"

var latexEngines = map[string]string{
	EnginePDFTeX: EnginePDFLaTeX,
	EngineXeTeX:  EngineXeLaTeX,
	EngineLuaTeX: EngineLuaLaTeX,
}

type basicPhase int

const (
	basicStart basicPhase = iota
	basicDirectories
	basicCitations
	basicBibliographyPasses
	basicCrossReferences
	basicDone
)

// Basic drives the engine binaries directly and decides every pass itself.
type Basic struct {
	Base

	command      string // resolved engine binary
	bibtex       string
	latex        []string
	biber        []string
	phase        basicPhase
	passes       int
	dirPasses    int
	maxDirPasses int
	handledDirs  map[string]struct{}
}

// NewBasic creates a Basic builder.
func NewBasic(s Settings) (*Basic, error) {
	base, err := newBase(basicName, s)
	if err != nil {
		return nil, err
	}
	b := &Basic{
		Base:         base,
		bibtex:       s.Builder.Bibtex,
		maxDirPasses: s.Builder.MaxDirectoryPasses,
		handledDirs:  make(map[string]struct{}),
	}
	if b.bibtex == "" {
		b.bibtex = "bibtex"
	}
	if b.maxDirPasses <= 0 {
		b.maxDirPasses = DefaultMaxDirectoryPasses
	}
	b.command = basicEngineCommand(b.engine)
	b.latex, b.biber = b.buildCommands()
	b.decide = b.step
	return b, nil
}

// basicEngineCommand maps an engine identifier to the binary Basic runs.
func basicEngineCommand(engine string) string {
	if !strings.Contains(engine, "la") {
		if cmd, ok := latexEngines[engine]; ok {
			return cmd
		}
		return EnginePDFLaTeX
	}
	switch engine {
	case EnginePDFLaTeX, EngineXeLaTeX, EngineLuaLaTeX:
		return engine
	default:
		return EnginePDFLaTeX
	}
}

func (b *Basic) buildCommands() ([]string, []string) {
	latex := []string{b.command, "-interaction=nonstopmode", "-synctex=1"}
	biber := []string{"biber"}

	if b.auxDirectory != "" {
		biber = append(biber, "--output-directory="+b.auxDirectory)
		if b.auxDirectory == b.outputDirectory {
			latex = append(latex, "--output-directory="+b.auxDirectory)
		} else {
			latex = append(latex, "--aux-directory="+b.auxDirectory)
		}
	} else if b.outputDirectory != "" {
		biber = append(biber, "--output-directory="+b.outputDirectory)
	}

	if b.outputDirectory != "" && b.outputDirectory != b.auxDirectory {
		latex = append(latex, "--output-directory="+b.outputDirectory)
	}

	if b.jobName != b.baseName {
		latex = append(latex, "--jobname="+b.jobName)
	}

	latex = append(latex, b.options...)
	latex = append(latex, b.texName)
	return latex, biber
}

func (b *Basic) step() (*Step, error) {
	for {
		switch b.phase {
		case basicStart:
			b.phase = basicDirectories
			if dir := b.resolvedOutputDir(); dir != "" {
				if err := makeDirectory(dir); err != nil {
					return nil, err
				}
			}
			return b.mainStep(), nil

		case basicDirectories:
			if b.resolvedOutputDir() != "" {
				if b.dirPasses >= b.maxDirPasses {
					slog.Warn("Giving up on missing subdirectories",
						logfields.Builder(b.name),
						slog.Int("passes", b.dirPasses))
				} else {
					created, err := b.createMissingDirectories()
					if err != nil {
						return nil, err
					}
					if created {
						b.dirPasses++
						return b.mainStep(), nil
					}
				}
			}
			b.phase = basicCitations

		case basicCitations:
			b.phase = basicCrossReferences
			if step := b.bibliographyStep(); step != nil {
				b.phase = basicBibliographyPasses
				b.passes = 2
				return step, nil
			}

		case basicBibliographyPasses:
			if b.passes > 0 {
				b.passes--
				return b.mainStep(), nil
			}
			b.phase = basicCrossReferences

		case basicCrossReferences:
			// Checked last: a bibliography pass can itself ask for a rerun.
			b.phase = basicDone
			if DiagnosticPatterns.Has(b.out, PatternRerunCrossRefs) {
				return b.mainStep(), nil
			}

		default:
			return nil, nil
		}
	}
}

// createMissingDirectories creates every subdirectory named by a
// "can't write" error that has not been handled before. Paths that resolve
// outside the output location are skipped.
func (b *Basic) createMissingDirectories() (bool, error) {
	root := b.resolvedOutputDir()
	p := DiagnosticPatterns.Lookup(PatternFileWriteError)
	added := false
	for _, m := range p.FindAll(b.out) {
		dir := filepath.Clean(filepath.Join(root, m.Group(1)))
		if _, seen := b.handledDirs[dir]; seen {
			continue
		}
		b.handledDirs[dir] = struct{}{}
		if !within(root, dir) {
			slog.Warn("Not creating directory outside the output location",
				logfields.Builder(b.name),
				logfields.Directory(dir))
			continue
		}
		if err := makeDirectory(dir); err != nil {
			return false, err
		}
		added = true
	}
	return added, nil
}

func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (b *Basic) bibliographyStep() *Step {
	plan := planBibliography(b.out)
	if !plan.Run {
		return nil
	}
	if plan.Biber {
		args := append(slices.Clone(b.biber), b.jobName)
		return &Step{Args: args, Message: "running biber...", Dir: b.texDir, Tool: "biber"}
	}
	return b.legacyBibliographyStep(plan.Tool)
}

// legacyBibliographyStep runs bibtex-style tools from the output location,
// pointing BIBINPUTS and BSTINPUTS back at the source directory.
func (b *Basic) legacyBibliographyStep(tool string) *Step {
	if tool == "" {
		tool = b.bibtex
	}
	step := &Step{
		Args:    []string{tool, b.jobName},
		Message: fmt.Sprintf("running %s...", tool),
		Dir:     b.texDir,
		Tool:    tool,
	}
	if out := b.resolvedOutputDir(); out != "" {
		step.Env = map[string]string{
			"BIBINPUTS": process.AppendPathList(b.texDir, os.Getenv("BIBINPUTS")),
			"BSTINPUTS": process.AppendPathList(b.texDir, os.Getenv("BSTINPUTS")),
		}
		step.Dir = out
	}
	return step
}

func (b *Basic) mainStep() *Step {
	return &Step{
		Args:    slices.Clone(b.latex),
		Message: fmt.Sprintf("running %s...", b.command),
		Dir:     b.texDir,
		Tool:    b.command,
	}
}
