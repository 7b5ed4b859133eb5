package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	args := Command{}
	cli := kong.Parse(&args,
		kong.Name("tsbundle"),
		kong.Description("Bundle timestamped camera captures into zip archives."),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignals(cancel)

	logger := newLogger()

	// Commands with positional arguments are reported as "bundle <camera-dirs>".
	command, _, _ := strings.Cut(cli.Command(), " ")
	switch command {
	case "version":
		fmt.Println(version)
	case "bundle":
		err := bundleCommand(ctx, args, logger)
		if err != nil {
			logger.Error().Err(err).Msg("bundle error")
			cli.Exit(1)
		}
	case "extract":
		err := extractCommand(ctx, args, logger)
		if err != nil {
			logger.Error().Err(err).Msg("extract error")
			cli.Exit(1)
		}
	case "catalog":
		err := catalogCommand(ctx, args, logger)
		if err != nil {
			logger.Error().Err(err).Msg("catalog error")
			cli.Exit(1)
		}
	case "daemon":
		err := daemonCommand(ctx, args, logger)
		if err != nil {
			logger.Error().Err(err).Msg("daemon error")
			cli.Exit(1)
		}
	default:
		panic(cli.Command())
	}
}

func setupSignals(onSignal func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		onSignal()
	}()
}
