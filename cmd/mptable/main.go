package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mptable/internal/logger"
	"github.com/samcharles93/mptable/internal/version"
)

func main() {
	cfg := LoadConfig()

	app := &cli.Command{
		Name:    "mptable",
		Usage:   "Decode Intel MultiProcessor configuration tables",
		Version: version.String(),
		Flags:   loggingFlags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			applyLoggingConfig(c, cfg)
			level := logger.ParseLevel(logLevel)
			if debug {
				level = logger.ParseLevel("debug")
			}
			return logger.WithContext(ctx, logger.FromFormat(os.Stderr, logFormat, level)), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(cfg),
			entriesCmd(cfg),
			serveCmd(cfg),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
