package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "ptnfw",
		Usage:     "Unpack, pack and checksum fwup-ptn router firmware images",
		ArgsUsage: "COMMAND IMAGE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return cli.Exit(fmt.Sprintf("error: unknown command %q", cmd.Args().First()), 1)
			}
			_ = cli.ShowAppHelp(cmd)
			return cli.Exit("", 1)
		},
		// Exit codes are reported by main so that empty messages print nothing.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			unpackCmd(),
			packCmd(),
			checkCmd(),
			fixCmd(),
			inspectCmd(),
			diffCmd(),
			modelsCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

func main() {
	os.Exit(exitStatus(newApp().Run(context.Background(), os.Args)))
}

// exitStatus prints err, if it carries a message, and returns the process
// exit code for it.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		_, _ = fmt.Fprintln(os.Stderr, msg)
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}
