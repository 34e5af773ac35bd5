// Command rowsite fetches Hugging Face dataset-server rows and renders them
// as static HTML, a multi-page site or a client-side rendering page.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Sternrassler/hf-rowsite/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(config.Load())
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("rowsite failed")
		stop()
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newApp(cfg *config.AppConfig) *cli.App {
	app := &cli.App{
		Name:  "rowsite",
		Usage: "render dataset-server rows as HTML",
		// errors are returned to main instead of exiting inside the library
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError:   onUsageError(""),
		Commands: []*cli.Command{
			buildCommand(cfg),
			siteCommand(cfg),
			dynamicCommand(cfg),
			serveCommand(cfg),
			publishCommand(cfg),
		},
	}
	for _, cmd := range app.Commands {
		cmd.OnUsageError = onUsageError(cmd.Name)
	}
	return app
}
