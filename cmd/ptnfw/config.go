package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/ptnfw/internal/logger"
	"github.com/samcharles93/ptnfw/pkg/ptn"
)

const envConfig = "PTNFW_CONFIG"

// Config is the optional ptnfw configuration file
// (~/.config/ptnfw/config.yaml). Values apply only where the matching flag
// was not given on the command line.
type Config struct {
	Root          string        `yaml:"root"`
	Model         string        `yaml:"model"`
	StrictTable   *bool         `yaml:"strict_table"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	ServerAddress string        `yaml:"server_address"`
	Models        []ModelConfig `yaml:"models"`
}

// ModelConfig adds a model to the built-in registry. ID and Placeholder are
// hex encoded.
type ModelConfig struct {
	Key         string `yaml:"key"`
	ID          string `yaml:"id"`
	Placeholder string `yaml:"md5_placeholder"`
	Vendor      string `yaml:"vendor"`
}

func (mc ModelConfig) model() (ptn.Model, error) {
	m := ptn.Model{Key: strings.TrimSpace(mc.Key), Vendor: mc.Vendor}
	id, err := hex.DecodeString(strings.TrimSpace(mc.ID))
	if err != nil {
		return ptn.Model{}, fmt.Errorf("model %q: id: %w", mc.Key, err)
	}
	if len(id) != ptn.ModelIDSize {
		return ptn.Model{}, fmt.Errorf("model %q: id must be %d bytes, got %d", mc.Key, ptn.ModelIDSize, len(id))
	}
	copy(m.ID[:], id)
	if ph := strings.TrimSpace(mc.Placeholder); ph != "" {
		m.Placeholder, err = hex.DecodeString(ph)
		if err != nil {
			return ptn.Model{}, fmt.Errorf("model %q: md5_placeholder: %w", mc.Key, err)
		}
	}
	return m, nil
}

// Registry returns the built-in registry extended with the configured models.
func (c Config) Registry() (*ptn.Registry, error) {
	reg := ptn.DefaultRegistry()
	if len(c.Models) == 0 {
		return reg, nil
	}
	extra := make([]ptn.Model, 0, len(c.Models))
	for _, mc := range c.Models {
		m, err := mc.model()
		if err != nil {
			return nil, err
		}
		extra = append(extra, m)
	}
	return reg.With(extra...)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ptnfw", "config.yaml")
}

// LoadConfig reads the config file. An explicit path must exist; a missing
// file at the default location yields a zero Config.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(envConfig))
		explicit = path != ""
	}
	if !explicit {
		path = defaultConfigPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig fills flag variables from cfg where the flag was not set.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.Root != "" && hasFlag(c, "root") && !c.IsSet("root") {
		rootDir = cfg.Root
	}
	if cfg.Model != "" && hasFlag(c, "model") && !c.IsSet("model") {
		modelKey = cfg.Model
	}
	if cfg.StrictTable != nil && hasFlag(c, "strict") && !c.IsSet("strict") {
		strictTable = *cfg.StrictTable
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") && !c.IsSet("verbose") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func hasFlag(c *cli.Command, name string) bool {
	for _, f := range c.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

// env is the per-invocation state shared by every command.
type env struct {
	cfg      Config
	log      logger.Logger
	registry *ptn.Registry
	decode   ptn.DecodeOptions
}

func setup(ctx context.Context, c *cli.Command) (context.Context, *env, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, nil, cli.Exit(fmt.Sprintf("error: load config: %v", err), 1)
	}
	applyConfig(c, cfg)

	level := logger.FromVerbosity(int(verbosity))
	if logLevel != "" {
		level = logger.ParseLevel(logLevel)
	}
	log, err := logger.Open(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, nil, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	log = log.With("cmd", c.Name)

	reg, err := cfg.Registry()
	if err != nil {
		return ctx, nil, cli.Exit(fmt.Sprintf("error: config models: %v", err), 1)
	}

	decode := ptn.DecodeOptions{Mode: ptn.Lenient}
	if strictTable {
		decode.Mode = ptn.Strict
	}

	ctx = logger.WithContext(ctx, log)
	return ctx, &env{cfg: cfg, log: log, registry: reg, decode: decode}, nil
}

// imageArg returns the single IMAGE positional argument.
func imageArg(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", cli.Exit(fmt.Sprintf("error: %s expects exactly one IMAGE argument", c.Name), 1)
	}
	return filepath.Clean(c.Args().First()), nil
}
