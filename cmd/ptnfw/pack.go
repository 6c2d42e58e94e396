package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

func packCmd() *cli.Command {
	return &cli.Command{
		Name:      "pack",
		Usage:     "Assemble the partition files under --root into IMAGE and repair its checksum",
		ArgsUsage: "IMAGE",
		Flags:     flags(rootFlags(), modelFlags()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, env, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			image, err := imageArg(cmd)
			if err != nil {
				return err
			}

			env.log.Info("packing image", "image", image, "root", rootDir, "model", modelKey)
			res, err := ptn.Pack(ptn.PackOptions{
				Registry:   env.registry,
				Model:      modelKey,
				InputDir:   rootDir,
				OutputPath: image,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: pack %s: %v", image, err), 1)
			}
			for _, e := range res.Entries {
				env.log.Debug("packed partition", "name", e.Name, "base", e.Base, "size", e.Size)
			}
			env.log.Info("packed image", "partitions", len(res.Entries), "size", res.TotalSize, "checksum", res.Checksum)
			return nil
		},
	}
}
