package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/wkmcp/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "wkmcp",
		Usage:    "Mirror WaniKani study data and serve it over MCP",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrMissingArgument) {
			logger.Error(err.Error())
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
