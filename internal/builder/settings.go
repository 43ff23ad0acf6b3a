package builder

import "runtime"

// Engine identifiers accepted in Settings.Engine.
const (
	EnginePDFTeX   = "pdftex"
	EngineXeTeX    = "xetex"
	EngineLuaTeX   = "luatex"
	EnginePDFLaTeX = "pdflatex"
	EngineXeLaTeX  = "xelatex"
	EngineLuaLaTeX = "lualatex"
)

// Distribution identifiers for PlatformSettings.Distro.
const (
	DistroTeXLive = "texlive"
	DistroMiKTeX  = "miktex"
)

// DefaultMaxDirectoryPasses bounds the subdirectory-creation retry loop.
const DefaultMaxDirectoryPasses = 10

// Settings is the immutable configuration of a single build.
type Settings struct {
	RootFile        string
	Engine          string
	Options         []string
	OutputDirectory string
	AuxDirectory    string
	JobName         string
	Builder         BuilderSettings
	Platform        PlatformSettings
}

// BuilderSettings holds strategy-specific options.
type BuilderSettings struct {
	// Command overrides the traditional wrapper invocation.
	Command []string
	// Bibtex overrides the legacy bibliography program used by Basic.
	Bibtex string
	// Texliveonfly names the package-fetching fallback used by Traditional.
	Texliveonfly string
	// DisplayLog echoes captured output after every step.
	DisplayLog bool
	// MaxDirectoryPasses caps the subdirectory-creation reruns.
	MaxDirectoryPasses int
}

// PlatformSettings holds platform-dependent defaults.
type PlatformSettings struct {
	Distro  string
	OS      string
	TexPath string
}

func (p PlatformSettings) goos() string {
	if p.OS == "" {
		return runtime.GOOS
	}
	return p.OS
}

func (p PlatformSettings) distro() string {
	if p.Distro != "" {
		return p.Distro
	}
	if p.goos() == "windows" {
		return DistroMiKTeX
	}
	return DistroTeXLive
}
