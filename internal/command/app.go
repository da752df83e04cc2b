package command

import (
	"context"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"heapcache/internal/config"
)

// InitApp builds the root command. The first non-flag argument names the
// subcommand and doubles as the config namespace.
func InitApp(_ context.Context, args []string) (*cli.Command, error) {
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load(ns)
	if err != nil {
		log.WithError(err).Debug("running without a config file")
	}

	app := &cli.Command{
		Name:  "heapcache",
		Usage: "LRU cache built on an indexed heap",
	}

	app.Commands = append(app.Commands,
		ReplayCommandBuilder(cfg),
		DemoCommandBuilder(),
	)

	return app, nil
}
