package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BuildFlags
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, &b.BuildFlags)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := newSession(cfg, os.Stdout, nil)
	defer s.Close()

	_, err = s.build(ctx)
	return err
}
