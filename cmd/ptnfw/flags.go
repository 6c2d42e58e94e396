package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

var (
	configFile  string
	rootDir     string
	modelKey    string
	strictTable bool
	verbosity   int64
	logLevel    string
	logFormat   string
)

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "root",
			Aliases:     []string{"r"},
			Usage:       "partition directory to unpack into or pack from",
			Value:       ".",
			Destination: &rootDir,
		},
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "target model key (list them with: ptnfw models)",
			Value:       ptn.DefaultModelKey,
			Destination: &modelKey,
		},
	}
}

func tableFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "reject partition table entries with an odd token count instead of skipping them",
			Destination: &strictTable,
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/ptnfw/config.yaml, or $" + envConfig + ")",
			Destination: &configFile,
		},
		&cli.Int64Flag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "verbosity: 0 quiet, 1 info, 2 debug",
			Destination: &verbosity,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error); overrides --verbose",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return append(out, commonFlags()...)
}
