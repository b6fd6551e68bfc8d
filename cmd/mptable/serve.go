package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mptable/internal/logger"
	"github.com/samcharles93/mptable/internal/server"
	"github.com/samcharles93/mptable/pkg/mptable"
)

func serveCmd(cfg Config) *cli.Command {
	var (
		src         sourceOptions
		addr        string
		readTimeout time.Duration
		reloadRate  float64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the decoded table as a read-only JSON API",
		Flags: append(sourceFlags(&src),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8086",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       10 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Float64Flag{
				Name:        "reload-rate",
				Usage:       "max table reloads per second via ?refresh=1 (0 disables)",
				Value:       1,
				Destination: &reloadRate,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)
			applySourceConfig(c, cfg, &src)
			applyServeConfig(c, cfg, &addr, &reloadRate)

			// Each load maps the image again. The table is copied out before
			// the mapping is released.
			load := func(context.Context) (*mptable.Config, error) {
				region, tbl, err := src.open()
				if err != nil {
					return nil, err
				}
				defer func() { _ = region.Close() }()
				tbl.Table = append([]byte(nil), tbl.Table...)
				return tbl, nil
			}

			srv := server.New(server.Config{
				Load:       load,
				Source:     src.image,
				ReloadRate: reloadRate,
				Logger:     log,
			})
			if err := srv.Reload(ctx); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			srv.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(s *http.Server) error {
					s.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
