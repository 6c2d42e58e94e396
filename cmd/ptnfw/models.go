package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

func modelsCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:    "models",
		Aliases: []string{"ls"},
		Usage:   "List the supported models",
		Flags: flags([]cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print JSON",
				Destination: &asJSON,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}

			type row struct {
				Key         string `json:"key"`
				ID          string `json:"id"`
				Vendor      string `json:"vendor"`
				Placeholder string `json:"md5_placeholder"`
			}
			var rows []row
			for _, k := range env.registry.Keys() {
				m, err := env.registry.Lookup(k)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				rows = append(rows, row{
					Key:         m.Key,
					ID:          fmt.Sprintf("%x", m.ID),
					Vendor:      m.Vendor,
					Placeholder: fmt.Sprintf("%x", m.PlaceholderDigest()),
				})
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for _, r := range rows {
				fmt.Printf("  %-16s id=%s vendor=%q\n", r.Key, r.ID, r.Vendor)
			}
			fmt.Printf("\n%d model(s)\n", len(rows))
			return nil
		},
	}
}
