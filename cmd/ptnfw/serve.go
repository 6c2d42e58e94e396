package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/internal/api"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxBody     int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the image inspection API",
		Flags: flags(tableFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-body",
				Usage:       "largest accepted image in bytes",
				Value:       api.DefaultMaxBodyBytes,
				Destination: &maxBody,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			if env.cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = env.cfg.ServerAddress
			}

			server := api.NewServer(api.Config{
				Registry:     env.registry,
				Decode:       env.decode,
				MaxBodyBytes: maxBody,
				Logger:       env.log,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(api.RequestID())
			server.Register(e)

			env.log.Info("starting server", "address", addr, "models", env.registry.Len())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
