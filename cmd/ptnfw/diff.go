package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

type diffRow struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	BaseA     uint64 `json:"base_a,omitempty"`
	SizeA     uint64 `json:"size_a,omitempty"`
	BaseB     uint64 `json:"base_b,omitempty"`
	SizeB     uint64 `json:"size_b,omitempty"`
	FirstDiff int64  `json:"first_diff"`
	MD5A      string `json:"md5_a,omitempty"`
	MD5B      string `json:"md5_b,omitempty"`
}

func diffCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare the partitions of two images",
		ArgsUsage: "IMAGE_A IMAGE_B",
		Flags: flags(tableFlags(), []cli.Flag{
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
			if cmd.Args().Len() != 2 {
				return cli.Exit("error: diff expects IMAGE_A and IMAGE_B", 1)
			}

			a, err := ptn.Open(cmd.Args().Get(0), env.decode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", cmd.Args().Get(0), err), 1)
			}
			defer func() { _ = a.Close() }()
			b, err := ptn.Open(cmd.Args().Get(1), env.decode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", cmd.Args().Get(1), err), 1)
			}
			defer func() { _ = b.Close() }()

			diffs := ptn.Diff(a, b)
			rows := make([]diffRow, 0, len(diffs))
			changed := 0
			for _, d := range diffs {
				r := diffRow{Name: d.Name, Kind: d.Kind.String(), FirstDiff: d.FirstDiff}
				if d.A != nil {
					r.BaseA, r.SizeA = d.A.Base, d.A.Size
					r.MD5A = fmt.Sprintf("%x", d.SumA)
				}
				if d.B != nil {
					r.BaseB, r.SizeB = d.B.Base, d.B.Size
					r.MD5B = fmt.Sprintf("%x", d.SumB)
				}
				if d.Kind != ptn.DiffSame && d.Kind != ptn.DiffMoved {
					changed++
				}
				rows = append(rows, r)
			}
			env.log.Debug("compared images", "partitions", len(rows), "changed", changed)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rows); err != nil {
					return err
				}
			} else {
				for _, r := range rows {
					switch r.Kind {
					case "added":
						fmt.Printf("+ %-24s size=%#x\n", r.Name, r.SizeB)
					case "removed":
						fmt.Printf("- %-24s size=%#x\n", r.Name, r.SizeA)
					case "changed":
						fmt.Printf("~ %-24s size %#x -> %#x, first difference at %#x\n", r.Name, r.SizeA, r.SizeB, r.FirstDiff)
					case "moved":
						fmt.Printf("> %-24s base %#x -> %#x\n", r.Name, r.BaseA, r.BaseB)
					default:
						fmt.Printf("  %-24s\n", r.Name)
					}
				}
			}
			if changed > 0 {
				return cli.Exit("", exitMismatch)
			}
			return nil
		},
	}
}
