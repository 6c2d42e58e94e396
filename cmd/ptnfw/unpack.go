package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

func unpackCmd() *cli.Command {
	return &cli.Command{
		Name:      "unpack",
		Usage:     "Split IMAGE into one file per partition under --root",
		ArgsUsage: "IMAGE",
		Flags:     flags(rootFlags(), tableFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			image, err := imageArg(cmd)
			if err != nil {
				return err
			}

			env.log.Info("unpacking image", "image", image, "root", rootDir, "mode", env.decode.Mode)
			entries, err := ptn.UnpackFile(image, rootDir, env.decode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: unpack %s: %v", image, err), 1)
			}
			for _, e := range entries {
				env.log.Debug("wrote partition", "name", e.Name, "base", e.Base, "size", e.Size)
			}
			env.log.Info("unpacked image", "partitions", len(entries))
			return nil
		},
	}
}
