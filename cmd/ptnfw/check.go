package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

// exitMismatch is returned when check finds a wrong digest or diff finds
// differing partitions.
const exitMismatch = 2

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Verify the checksum of IMAGE (exit 0 on match, 2 on mismatch)",
		ArgsUsage: "IMAGE",
		Flags:     flags(modelFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			image, err := imageArg(cmd)
			if err != nil {
				return err
			}
			m, err := env.registry.Lookup(modelKey)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			stored, expected, err := ptn.DigestFile(image, m)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: check %s: %v", image, err), 1)
			}
			if stored != expected {
				env.log.Warn("checksum mismatch", "image", image, "stored", stored, "expected", expected)
				return cli.Exit("", exitMismatch)
			}
			env.log.Info("checksum ok", "image", image, "checksum", stored)
			return nil
		},
	}
}

func fixCmd() *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "Rewrite the checksum of IMAGE in place",
		ArgsUsage: "IMAGE",
		Flags:     flags(modelFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			image, err := imageArg(cmd)
			if err != nil {
				return err
			}
			m, err := env.registry.Lookup(modelKey)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			changed, err := ptn.FixFile(image, m)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: fix %s: %v", image, err), 1)
			}
			if changed {
				env.log.Info("checksum repaired", "image", image)
			} else {
				env.log.Info("checksum already valid", "image", image)
			}
			return nil
		},
	}
}
