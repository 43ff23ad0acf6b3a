package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuild/cmd/texbuild/commands"
	"git.home.luguber.info/inful/texbuild/internal/errors"
	"git.home.luguber.info/inful/texbuild/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Logger: slog.Default()}
	ctx := kong.Parse(&cli,
		kong.Name("texbuild"),
		kong.Description("Drive LaTeX toolchains through multi-pass document builds."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := ctx.Run(&cli)
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
