package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/texbuild/internal/config"
	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int           `short:"n" help:"Maximum number of builds to list" default:"20"`
	Since time.Duration `help:"Only list builds started within this duration (0 lists all)"`
	JSON  bool          `name:"json" help:"Print summaries as JSON"`
	Build string        `name:"build" help:"Show the tool invocations of one build (ID or unique prefix)"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.LoadOptional(root.Config)
	if err != nil {
		return err
	}

	path := historyPath(cfg)
	if _, err := os.Stat(path); err != nil {
		return errors.HistoryError("open", err).WithContext("path", path)
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if h.Build != "" {
		return h.showBuild(ctx, store)
	}

	var since time.Time
	if h.Since > 0 {
		since = time.Now().Add(-h.Since)
	}
	summaries, err := history.Summaries(ctx, store, since, h.Limit)
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	return printSummaries(os.Stdout, summaries)
}

func (h *HistoryCmd) showBuild(ctx context.Context, store history.Store) error {
	id, err := resolveBuildID(ctx, store, h.Build)
	if err != nil {
		return err
	}
	steps, err := history.Steps(ctx, store, id)
	if err != nil {
		return err
	}
	if h.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(steps)
	}
	return printSteps(os.Stdout, steps)
}

// resolveBuildID expands a build ID prefix as printed by the list view.
func resolveBuildID(ctx context.Context, store history.Store, prefix string) (string, error) {
	ids, err := store.RecentBuilds(ctx, time.Time{}, 0)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.ValidationFailed("build", fmt.Sprintf("no recorded build matches %q", prefix))
	case 1:
		return matches[0], nil
	default:
		return "", errors.ValidationFailed("build", fmt.Sprintf("%q matches %d builds", prefix, len(matches)))
	}
}

func printSteps(w io.Writer, steps []history.StepCompleted) error {
	if len(steps) == 0 {
		_, err := fmt.Fprintln(w, "No tool invocations recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tPROGRAM\tEXIT\tDURATION\tARGS")
	for _, s := range steps {
		exit := strconv.Itoa(s.ExitCode)
		if s.Error != "" {
			exit = "error"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.Index, s.Program, exit,
			time.Duration(s.DurationMS)*time.Millisecond,
			strings.Join(s.Args, " "))
	}
	return tw.Flush()
}

func printSummaries(w io.Writer, summaries []*history.BuildSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tBUILD\tBUILDER\tENGINE\tREVISION\tSTATUS\tSTEPS\tFAILED\tDURATION")
	for _, s := range summaries {
		id := s.BuildID
		if len(id) > 8 {
			id = id[:8]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			id, s.Builder, s.Engine, orDash(s.Revision), s.Status,
			s.Invocations, s.Failed, s.Duration.Round(100*time.Millisecond))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
