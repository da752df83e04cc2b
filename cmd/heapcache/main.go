package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"

	"heapcache/internal/command"
	mylog "heapcache/internal/log"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	// Signal-aware context is the root of ownership for the run.
	// When SIGINT/SIGTERM arrives, ctx is canceled and long replays stop.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		log.WithError(err).Debug("command failed")
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}
