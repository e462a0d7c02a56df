// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads deployment settings from YAML or TOML files and
// command-line flags. Flags that are set explicitly win over the file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/fhe-ecdsa/curve"
)

// ErrUnknownEngine is returned for an engine other than plain or tfhe.
var ErrUnknownEngine = errors.New("config: unknown engine")

// Engine names.
const (
	EnginePlain = "plain"
	EngineTFHE  = "tfhe"
)

// Redis configures the job queue.
type Redis struct {
	// Addr empty selects the in-process queue.
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Queue    string `yaml:"queue" toml:"queue"`
}

// Storage configures ciphertext storage.
type Storage struct {
	Kind     string `yaml:"kind" toml:"kind"`
	Path     string `yaml:"path" toml:"path"`
	Capacity string `yaml:"capacity" toml:"capacity"`
}

// Config is the full deployment configuration.
type Config struct {
	Curve     string `yaml:"curve" toml:"curve"`
	Engine    string `yaml:"engine" toml:"engine"`
	Params    string `yaml:"params" toml:"params"`
	BlockBits int    `yaml:"block_bits" toml:"block_bits"`
	Window    int    `yaml:"window" toml:"window"`
	Threshold uint64 `yaml:"threshold" toml:"threshold"`

	Redis   Redis   `yaml:"redis" toml:"redis"`
	Storage Storage `yaml:"storage" toml:"storage"`

	HTTPAddr    string `yaml:"http_addr" toml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
	Workers     int    `yaml:"workers" toml:"workers"`
	// Parallelism bounds concurrent gate bootstraps; 0 uses GOMAXPROCS.
	Parallelism int    `yaml:"parallelism" toml:"parallelism"`
	KeyDir      string `yaml:"key_dir" toml:"key_dir"`
}

// Default returns the demo configuration: the toy curve on the cleartext
// engine.
func Default() Config {
	return Config{
		Curve:     "toy211",
		Engine:    EnginePlain,
		Params:    "PN10QP27",
		BlockBits: 2,
		Window:    6,
		Threshold: 100,
		Redis: Redis{
			Queue: "default",
		},
		Storage: Storage{
			Kind:     "memory",
			Capacity: "256MiB",
		},
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		Workers:     4,
		KeyDir:      "keys",
	}
}

// Validate checks the settings that do not need external resources.
func (c Config) Validate() error {
	switch c.Engine {
	case EnginePlain, EngineTFHE:
	default:
		return errors.Wrapf(ErrUnknownEngine, "%q", c.Engine)
	}
	if _, err := curve.ByName(c.Curve); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.BlockBits < 1 {
		return errors.Newf("config: block_bits %d", c.BlockBits)
	}
	if c.Engine == EngineTFHE && c.BlockBits != 2 {
		return errors.Newf("config: tfhe engine uses 2-bit blocks, got %d", c.BlockBits)
	}
	if c.Window < 1 || c.Window > curve.MaxWindow {
		return errors.Wrapf(curve.ErrWindow, "config: window %d", c.Window)
	}
	if c.Workers < 1 {
		return errors.Newf("config: workers %d", c.Workers)
	}
	if c.Parallelism < 0 {
		return errors.Newf("config: parallelism %d", c.Parallelism)
	}
	return nil
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		_, err = toml.Decode(string(data), c)
	default:
		return errors.Newf("config: unsupported file type %q", path)
	}
	return errors.Wrapf(err, "parse %s", path)
}

// Flags binds a Config to a flag set.
type Flags struct {
	fs   *pflag.FlagSet
	path string
	cfg  Config
}

// BindFlags registers --config and one flag per setting on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, cfg: Default()}
	c := &f.cfg
	fs.StringVar(&f.path, "config", "", "YAML or TOML configuration `file`")
	fs.StringVar(&c.Curve, "curve", c.Curve, "curve name (toy211, secp256k1)")
	fs.StringVar(&c.Engine, "engine", c.Engine, "homomorphic engine (plain, tfhe)")
	fs.StringVar(&c.Params, "params", c.Params, "TFHE parameter set")
	fs.IntVar(&c.BlockBits, "block-bits", c.BlockBits, "message bits per radix block")
	fs.IntVar(&c.Window, "window", c.Window, "scalar multiplication window size")
	fs.Uint64Var(&c.Threshold, "threshold", c.Threshold, "review threshold: approve when balance < threshold")
	fs.StringVar(&c.Redis.Addr, "redis", c.Redis.Addr, "Redis address; empty uses an in-process queue")
	fs.StringVar(&c.Redis.Password, "redis-password", c.Redis.Password, "Redis password")
	fs.IntVar(&c.Redis.DB, "redis-db", c.Redis.DB, "Redis database number")
	fs.StringVar(&c.Redis.Queue, "queue", c.Redis.Queue, "queue name")
	fs.StringVar(&c.Storage.Kind, "storage", c.Storage.Kind, "ciphertext storage (memory, file)")
	fs.StringVar(&c.Storage.Path, "storage-path", c.Storage.Path, "directory for file storage")
	fs.StringVar(&c.Storage.Capacity, "storage-capacity", c.Storage.Capacity, "memory storage capacity")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "metrics listen address")
	fs.IntVar(&c.Workers, "workers", c.Workers, "worker goroutines")
	fs.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "concurrent gate bootstraps; 0 uses GOMAXPROCS")
	fs.StringVar(&c.KeyDir, "keys", c.KeyDir, "key directory")
	return f
}

// Config resolves the configuration after the flag set has been parsed:
// defaults, then the --config file, then explicitly set flags.
func (f *Flags) Config() (Config, error) {
	set := make(map[string]string)
	f.fs.Visit(func(fl *pflag.Flag) {
		if fl.Name != "config" {
			set[fl.Name] = fl.Value.String()
		}
	})
	if f.path != "" {
		f.cfg = Default()
		if err := f.cfg.decodeFile(f.path); err != nil {
			return Config{}, err
		}
		for name, v := range set {
			if err := f.fs.Set(name, v); err != nil {
				return Config{}, errors.Wrapf(err, "flag --%s", name)
			}
		}
	}
	if err := f.cfg.Validate(); err != nil {
		return Config{}, err
	}
	return f.cfg, nil
}
