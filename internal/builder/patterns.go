package builder

import (
	"regexp"
	"strings"
)

// Action is what a strategy does when a diagnostic pattern matches.
type Action string

const (
	ActionRunBibliography Action = "run_bibliography"
	ActionSelectBackend   Action = "select_backend"
	ActionCreateDirectory Action = "create_directory"
	ActionRerun           Action = "rerun"
	ActionFetchPackage    Action = "fetch_package"
)

// Pattern names.
const (
	PatternCitationUndefined = "citation-undefined"
	PatternNatbibUndefined   = "natbib-undefined"
	PatternBiblatexBackend   = "biblatex-backend"
	PatternFileWriteError    = "file-write-error"
	PatternRerunCrossRefs    = "rerun-crossrefs"
	PatternFileNotFound      = "file-not-found"
)

// Pattern is a text signal recognised in tool output.
type Pattern struct {
	Name   string
	Expr   *regexp.Regexp
	Action Action
}

// Match is a pattern hit with its captured groups; Groups[0] is the whole match.
type Match struct {
	Pattern *Pattern
	Groups  []string
}

// Group returns capture group i or "".
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}

// PatternSet is an ordered collection of patterns.
type PatternSet []*Pattern

// DiagnosticPatterns is the fixed set applied to toolchain output. Order
// follows the order in which strategies consult them.
var DiagnosticPatterns = PatternSet{
	{
		Name:   PatternFileWriteError,
		Expr:   regexp.MustCompile("! I can't write on file `(.*)/([^/']*)'"),
		Action: ActionCreateDirectory,
	},
	{
		Name:   PatternCitationUndefined,
		Expr:   regexp.MustCompile("Warning: Citation [`|'].+' (?:on page \\d+ )?undefined"),
		Action: ActionRunBibliography,
	},
	{
		Name:   PatternBiblatexBackend,
		Expr:   regexp.MustCompile(`Package biblatex Warning: Please \(re\)run (\S*)`),
		Action: ActionSelectBackend,
	},
	{
		Name:   PatternNatbibUndefined,
		Expr:   regexp.MustCompile(regexp.QuoteMeta("Package natbib Warning: There were undefined citations")),
		Action: ActionRunBibliography,
	},
	{
		Name:   PatternRerunCrossRefs,
		Expr:   regexp.MustCompile(regexp.QuoteMeta("Rerun to get cross-references right.")),
		Action: ActionRerun,
	},
	{
		Name:   PatternFileNotFound,
		Expr:   regexp.MustCompile("! LaTeX Error: File `(?:(.*)/)?([^/']*)'"),
		Action: ActionFetchPackage,
	},
}

// Lookup returns the pattern with the given name, or nil.
func (ps PatternSet) Lookup(name string) *Pattern {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Find returns the first match of the named pattern in output.
func (ps PatternSet) Find(output, name string) (Match, bool) {
	p := ps.Lookup(name)
	if p == nil {
		return Match{}, false
	}
	return p.Find(output)
}

// Has reports whether the named pattern occurs in output.
func (ps PatternSet) Has(output, name string) bool {
	_, ok := ps.Find(output, name)
	return ok
}

// Scan returns the first match of every pattern that occurs, in set order.
func (ps PatternSet) Scan(output string) []Match {
	var matches []Match
	for _, p := range ps {
		if m, ok := p.Find(output); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// Find returns the first match of p in output.
func (p *Pattern) Find(output string) (Match, bool) {
	groups := p.Expr.FindStringSubmatch(output)
	if groups == nil {
		return Match{}, false
	}
	return Match{Pattern: p, Groups: groups}, true
}

// FindAll returns every non-overlapping match of p in output.
func (p *Pattern) FindAll(output string) []Match {
	all := p.Expr.FindAllStringSubmatch(output, -1)
	matches := make([]Match, 0, len(all))
	for _, groups := range all {
		matches = append(matches, Match{Pattern: p, Groups: groups})
	}
	return matches
}

// bibliographyPlan is the outcome of the citation checks.
type bibliographyPlan struct {
	Run   bool
	Tool  string // explicit tool requested by biblatex; "" selects the configured legacy tool
	Biber bool
}

// planBibliography applies the citation and backend patterns to output.
func planBibliography(output string) bibliographyPlan {
	if DiagnosticPatterns.Has(output, PatternCitationUndefined) {
		plan := bibliographyPlan{Run: true}
		if m, ok := DiagnosticPatterns.Find(output, PatternBiblatexBackend); ok {
			plan.Tool = strings.ToLower(m.Group(1))
			plan.Biber = plan.Tool == "biber"
		}
		return plan
	}
	if DiagnosticPatterns.Has(output, PatternNatbibUndefined) {
		return bibliographyPlan{Run: true}
	}
	return bibliographyPlan{}
}
