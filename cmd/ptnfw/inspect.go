package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/internal/api"
	"github.com/samcharles93/ptnfw/pkg/ptn"
)

type inspectReport struct {
	Image string `json:"image"`
	api.InspectResponse
	Check *api.CheckResponse `json:"check,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		asJSON    bool
		withCheck bool
	)
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the header and partition table of IMAGE",
		ArgsUsage: "IMAGE",
		Flags: flags(modelFlags(), tableFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print a JSON report",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "also verify the checksum against --model",
				Destination: &withCheck,
			},
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			image, err := imageArg(cmd)
			if err != nil {
				return err
			}

			img, err := ptn.Open(image, env.decode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", image, err), 1)
			}
			defer func() { _ = img.Close() }()

			report := inspectReport{Image: image, InspectResponse: api.Describe(img)}
			if withCheck {
				m, err := env.registry.Lookup(modelKey)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				stored, expected, err := ptn.Digest(img.Data, m)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: digest: %v", err), 1)
				}
				report.Check = &api.CheckResponse{
					Model:    m.Key,
					Match:    stored == expected,
					Stored:   fmt.Sprintf("%x", stored),
					Expected: fmt.Sprintf("%x", expected),
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(os.Stdout, report)
			return nil
		},
	}
}

func printReport(w io.Writer, r inspectReport) {
	h := r.Header
	fmt.Fprintf(w, "Image:     %s (%s)\n", r.Image, formatBytes(uint64(r.Size)))
	fmt.Fprintf(w, "Size:      %d (header says %d", r.Size, h.TotalSize)
	if h.SizeConsistent {
		fmt.Fprintln(w, ", ok)")
	} else {
		fmt.Fprintln(w, ", MISMATCH)")
	}
	fmt.Fprintf(w, "Checksum:  %s\n", h.Checksum)
	fmt.Fprintf(w, "Vendor:    %s\n", h.Vendor)
	fmt.Fprintf(w, "Model ID:  %s\n", h.ModelID)
	if r.Check != nil {
		state := "MISMATCH (expected " + r.Check.Expected + ")"
		if r.Check.Match {
			state = "ok"
		}
		fmt.Fprintf(w, "Verified:  %s [%s]\n", state, r.Check.Model)
	}

	fmt.Fprintf(w, "\nPartitions (%d):\n", len(r.Entries))
	fmt.Fprintf(w, "  %-24s %10s %10s %12s\n", "NAME", "BASE", "SIZE", "")
	for _, e := range r.Entries {
		note := formatBytes(e.Size)
		if !e.Bounds {
			note = "OUT OF BOUNDS"
		}
		fmt.Fprintf(w, "  %-24s %#10x %#10x %12s", e.Name, e.Base, e.Size, note)
		if len(e.Extra) > 0 {
			keys := make([]string, 0, len(e.Extra))
			for k := range e.Extra {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, k+"="+e.Extra[k])
			}
			fmt.Fprintf(w, "  %s", strings.Join(pairs, " "))
		}
		fmt.Fprintln(w)
	}
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
