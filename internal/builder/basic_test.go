package builder

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuild/internal/errors"
)

const (
	citeWarning  = "LaTeX Warning: Citation `knuth84' on page 1 undefined on input line 7."
	biberHint    = "Package biblatex Warning: Please (re)run Biber on the file:\n(biblatex)                doc\n(biblatex)                and rerun LaTeX afterwards."
	rerunWarning = "LaTeX Warning: Label(s) may have changed. Rerun to get cross-references right."
)

func TestBasic_CleanBuildSingleInvocation(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	steps := drive(t, b)
	require.Equal(t, [][]string{{"pdflatex", "-interaction=nonstopmode", "-synctex=1", "doc.tex"}}, invocations(steps))
	assert.Equal(t, "running pdflatex...", steps[0].Message)
	assert.Equal(t, filepath.Dir(root), steps[0].Dir)

	_, err = b.Next()
	assert.ErrorIs(t, err, ErrBuildFinished)
}

func TestBasic_RepeatedCleanOutputIsIdempotent(t *testing.T) {
	root := newRoot(t, "doc.tex")
	for i := 0; i < 3; i++ {
		b, err := NewBasic(Settings{RootFile: root, Engine: EngineXeTeX})
		require.NoError(t, err)
		assert.Equal(t, []string{"xelatex"}, programs(drive(t, b, "Output written on doc.pdf (1 page).")))
	}
}

func TestBasic_EngineTranslation(t *testing.T) {
	tests := map[string]string{
		EnginePDFTeX:   EnginePDFLaTeX,
		EngineXeTeX:    EngineXeLaTeX,
		EngineLuaTeX:   EngineLuaLaTeX,
		EnginePDFLaTeX: EnginePDFLaTeX,
		EngineXeLaTeX:  EngineXeLaTeX,
		EngineLuaLaTeX: EngineLuaLaTeX,
		"tectonic":     EnginePDFLaTeX,
		"platex":       EnginePDFLaTeX,
		"":             EnginePDFLaTeX,
	}
	for in, want := range tests {
		assert.Equal(t, want, basicEngineCommand(in), "engine %q", in)
	}
}

func TestBasic_SharedAuxAndOutputDirectory(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "build", AuxDirectory: "build"})
	require.NoError(t, err)

	step, err := b.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"pdflatex", "-interaction=nonstopmode", "-synctex=1", "--output-directory=build", "doc.tex"}, step.Args)
	for _, a := range step.Args {
		assert.False(t, strings.HasPrefix(a, "--aux-directory"), "unexpected %s", a)
	}
	assert.DirExists(t, filepath.Join(filepath.Dir(root), "build"))
}

func TestBasic_SeparateAuxAndOutputDirectory(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "out", AuxDirectory: "aux"})
	require.NoError(t, err)

	steps := drive(t, b, citeWarning+"\n"+biberHint)
	inv := invocations(steps)
	require.Len(t, inv, 4)
	assert.Equal(t, []string{"pdflatex", "-interaction=nonstopmode", "-synctex=1", "--aux-directory=aux", "--output-directory=out", "doc.tex"}, inv[0])
	assert.Equal(t, []string{"biber", "--output-directory=aux", "doc"}, inv[1])
	// Intermediate files go to the aux directory, so that is what gets created.
	assert.DirExists(t, filepath.Join(filepath.Dir(root), "aux"))
}

func TestBasic_OutputDirectoryOnly(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "out"})
	require.NoError(t, err)

	inv := invocations(drive(t, b, citeWarning+"\n"+biberHint))
	assert.Equal(t, []string{"pdflatex", "-interaction=nonstopmode", "-synctex=1", "--output-directory=out", "doc.tex"}, inv[0])
	assert.Equal(t, []string{"biber", "--output-directory=out", "doc"}, inv[1])
}

func TestBasic_JobName(t *testing.T) {
	root := newRoot(t, "doc.tex")

	t.Run("differs from base name", func(t *testing.T) {
		b, err := NewBasic(Settings{RootFile: root, JobName: "thesis"})
		require.NoError(t, err)
		inv := invocations(drive(t, b, citeWarning))
		require.Len(t, inv, 4)
		for i, args := range inv {
			if i == 1 {
				assert.Equal(t, []string{"bibtex", "thesis"}, args)
				continue
			}
			assert.Contains(t, args, "--jobname=thesis")
		}
	})

	t.Run("equals base name", func(t *testing.T) {
		b, err := NewBasic(Settings{RootFile: root, JobName: "doc"})
		require.NoError(t, err)
		for _, args := range invocations(drive(t, b, citeWarning)) {
			for _, a := range args {
				assert.False(t, strings.HasPrefix(a, "--jobname"))
			}
		}
	})
}

func TestBasic_OptionsBeforeRootFile(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, Options: []string{"-shell-escape", "-file-line-error"}})
	require.NoError(t, err)
	inv := invocations(drive(t, b))
	assert.Equal(t, []string{"pdflatex", "-interaction=nonstopmode", "-synctex=1", "-shell-escape", "-file-line-error", "doc.tex"}, inv[0])
}

func TestBasic_UndefinedCitationRunsBibtexThenTwoPasses(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	steps := drive(t, b, citeWarning)
	assert.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}, programs(steps))
	assert.Equal(t, "running bibtex...", steps[1].Message)
	// No output directory: bibtex runs next to the source without env tweaks.
	assert.Equal(t, filepath.Dir(root), steps[1].Dir)
	assert.Empty(t, steps[1].Env)
}

func TestBasic_BiblatexBiberHint(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	steps := drive(t, b, citeWarning+"\n"+biberHint)
	assert.Equal(t, []string{"pdflatex", "biber", "pdflatex", "pdflatex"}, programs(steps))
	assert.Equal(t, []string{"biber", "doc"}, steps[1].Args)
	assert.Equal(t, "running biber...", steps[1].Message)
}

func TestBasic_BiblatexNamesOtherTool(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	out := citeWarning + "\nPackage biblatex Warning: Please (re)run BibTeX on the file(s):"
	steps := drive(t, b, out)
	require.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}, programs(steps))
}

func TestBasic_NatbibUsesConfiguredLegacyTool(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, Builder: BuilderSettings{Bibtex: "bibtex8"}})
	require.NoError(t, err)

	steps := drive(t, b, "Package natbib Warning: There were undefined citations.")
	assert.Equal(t, []string{"pdflatex", "bibtex8", "pdflatex", "pdflatex"}, programs(steps))
	assert.Equal(t, "running bibtex8...", steps[1].Message)
}

func TestBasic_BibtexRunsFromOutputDirectory(t *testing.T) {
	root := newRoot(t, "doc.tex")
	t.Setenv("BIBINPUTS", "/shared/bib")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "out"})
	require.NoError(t, err)

	steps := drive(t, b, citeWarning)
	bib := steps[1]
	texDir := filepath.Dir(root)
	assert.Equal(t, filepath.Join(texDir, "out"), bib.Dir)
	assert.Equal(t, texDir+string(os.PathListSeparator)+"/shared/bib", bib.Env["BIBINPUTS"])
	assert.True(t, strings.HasPrefix(bib.Env["BSTINPUTS"], texDir+string(os.PathListSeparator)))
}

func TestBasic_CrossReferenceRerun(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	steps := drive(t, b, rerunWarning, rerunWarning)
	// Exactly one extra pass even if the rerun asks again.
	assert.Equal(t, []string{"pdflatex", "pdflatex"}, programs(steps))
	assert.True(t, b.Done())
}

func TestBasic_CrossReferenceCheckedAfterBibliography(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	// The citation run also asks for a rerun; the bibliography passes satisfy it.
	steps := drive(t, b, citeWarning+"\n"+rerunWarning, "", "", "")
	assert.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex"}, programs(steps))

	b, err = NewBasic(Settings{RootFile: root})
	require.NoError(t, err)
	steps = drive(t, b, citeWarning, "", "", rerunWarning)
	assert.Equal(t, []string{"pdflatex", "bibtex", "pdflatex", "pdflatex", "pdflatex"}, programs(steps))
}

func TestBasic_CreatesMissingSubdirectories(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "build"})
	require.NoError(t, err)

	first := "! I can't write on file `chapters/intro.aux'."
	second := "! I can't write on file `chapters/intro.aux'.\n! I can't write on file `chapters/appendix/a.aux'."
	steps := drive(t, b, first, second, first)

	buildDir := filepath.Join(filepath.Dir(root), "build")
	assert.DirExists(t, filepath.Join(buildDir, "chapters"))
	assert.DirExists(t, filepath.Join(buildDir, "chapters", "appendix"))
	// main, rerun after chapters, rerun after appendix, then nothing new.
	assert.Equal(t, []string{"pdflatex", "pdflatex", "pdflatex"}, programs(steps))
}

func TestBasic_DirectoryRetriesResolveBeforeCitations(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "build"})
	require.NoError(t, err)

	steps := drive(t, b, "! I can't write on file `ch/a.aux'.", citeWarning)
	assert.Equal(t, []string{"pdflatex", "pdflatex", "bibtex", "pdflatex", "pdflatex"}, programs(steps))
}

func TestBasic_WriteErrorsOutsideOutputDirectoryAreSkipped(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "build"})
	require.NoError(t, err)

	steps := drive(t, b, "! I can't write on file `../escape/x.aux'.\n! I can't write on file `../../far/x.aux'.")
	assert.Equal(t, []string{"pdflatex"}, programs(steps))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(root), "escape"))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(filepath.Dir(root)), "far"))
}

func TestWithin(t *testing.T) {
	root := filepath.Join("/tmp", "doc", "build")
	assert.True(t, within(root, filepath.Join(root, "ch")))
	assert.True(t, within(root, filepath.Join(root, "..hidden")))
	assert.False(t, within(root, filepath.Join(root, "..")))
	assert.False(t, within(root, filepath.Join(root, "..", "other")))
}

func TestBasic_WriteErrorsIgnoredWithoutOutputDirectory(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	steps := drive(t, b, "! I can't write on file `ch/a.aux'.")
	assert.Equal(t, []string{"pdflatex"}, programs(steps))
}

func TestBasic_DirectoryPassesAreCapped(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "build", Builder: BuilderSettings{MaxDirectoryPasses: 2}})
	require.NoError(t, err)

	steps := drive(t, b,
		"! I can't write on file `a/x.aux'.",
		"! I can't write on file `b/x.aux'.",
		"! I can't write on file `c/x.aux'.",
	)
	assert.Equal(t, []string{"pdflatex", "pdflatex", "pdflatex"}, programs(steps))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(root), "build", "c"))
}

func TestBasic_DirectoryCreationFailureStopsBuild(t *testing.T) {
	root := newRoot(t, "doc.tex")
	// A regular file where the output directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "build"), nil, 0o644))

	b, err := NewBasic(Settings{RootFile: root, OutputDirectory: "build"})
	require.NoError(t, err)

	_, err = b.Next()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileSystem))
	assert.True(t, b.Done())

	_, err = b.Next()
	assert.False(t, stdErrors.Is(err, ErrBuildFinished))
}

func TestBasic_NextWithoutObserve(t *testing.T) {
	root := newRoot(t, "doc.tex")
	b, err := NewBasic(Settings{RootFile: root})
	require.NoError(t, err)

	_, err = b.Next()
	require.NoError(t, err)
	assert.False(t, b.Done())
	_, err = b.Next()
	assert.ErrorIs(t, err, ErrOutputPending)

	b.Observe("")
	_, err = b.Next()
	assert.ErrorIs(t, err, ErrBuildFinished)
}

func TestBasic_CleanTempsUnsupported(t *testing.T) {
	b, err := NewBasic(Settings{RootFile: newRoot(t, "doc.tex")})
	require.NoError(t, err)
	err = b.CleanTemps()
	require.Error(t, err)
	assert.True(t, errors.IsUnsupported(err))
	assert.ErrorIs(t, err, stdErrors.ErrUnsupported)
}
