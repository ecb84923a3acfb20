// Package config resolves the run configuration from flags, environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goplus/srcbuild/internal/env"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. SRCBUILD_JOBS.
	EnvPrefix = "SRCBUILD"
	// FileName is the config file looked up in the workspace root.
	FileName = "srcbuild.yaml"
)

// Config is the resolved run configuration.
type Config struct {
	// Root is the workspace holding source/, build/ and output/.
	Root string
	// Jobs is the build parallelism, always positive once resolved.
	Jobs int
	// Settle is the pause after a recursive delete.
	Settle  time.Duration
	Verbose bool
	LogFile string
	// Defines are extra CMake cache entries.
	Defines map[string]string
	// ConfigureArgs are extra ./configure flags.
	ConfigureArgs []string
	// Use lists install prefixes of dependencies exposed to the build.
	Use []string
	// Env is merged into the environment of every build step.
	Env map[string]string
	// File is the config file that was read, if any.
	File string
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default <root>/"+FileName+")")
	fs.String("root", "", "workspace root (default: directory of the executable)")
	fs.IntP("jobs", "j", 0, "build parallelism (0 = number of CPUs)")
	fs.Duration("settle", time.Second, "pause after removing a directory tree")
	fs.BoolP("verbose", "v", false, "enable debug logging")
	fs.String("log-file", "", "also write JSON logs to this rotating file")
	fs.StringSlice("define", nil, "extra CMake definition KEY=VALUE (repeatable, comma separated in SRCBUILD_DEFINE)")
	fs.StringSlice("configure-arg", nil, "extra ./configure argument (repeatable)")
	fs.StringSlice("use", nil, "install prefix of a dependency to expose (repeatable)")
	fs.StringSlice("env", nil, "extra environment variable KEY=VALUE for build steps (repeatable)")
}

// Load resolves the configuration for the flags in fs.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}

	root := v.GetString("root")
	if root == "" {
		var err error
		if root, err = env.DefaultRoot(); err != nil {
			return Config{}, fmt.Errorf("workspace root: %w", err)
		}
	}

	file := v.GetString("config")
	explicit := file != ""
	if !explicit {
		file = filepath.Join(root, FileName)
	}
	if _, err := os.Stat(file); err == nil || explicit {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
		// The file may relocate the workspace.
		if r := v.GetString("root"); r != "" {
			root = r
		}
	} else {
		file = ""
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Root:          root,
		Jobs:          v.GetInt("jobs"),
		Settle:        v.GetDuration("settle"),
		Verbose:       v.GetBool("verbose"),
		LogFile:       v.GetString("log-file"),
		ConfigureArgs: stringSlice(v, fs, "configure-arg"),
		Use:           stringSlice(v, fs, "use"),
		File:          file,
	}
	if cfg.Jobs < 0 {
		return Config{}, fmt.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.NumCPU()
	}
	if cfg.Settle < 0 {
		return Config{}, errors.New("settle must not be negative")
	}
	if cfg.Defines, err = parsePairs("define", stringSlice(v, fs, "define")); err != nil {
		return Config{}, err
	}
	if cfg.Env, err = parsePairs("env", stringSlice(v, fs, "env")); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// stringSlice reads a list key. A value from the environment is split on
// commas, as the flag form is, rather than on whitespace.
func stringSlice(v *viper.Viper, fs *pflag.FlagSet, key string) []string {
	if f := fs.Lookup(key); f == nil || !f.Changed {
		if s := os.Getenv(envKey(key)); s != "" {
			var out []string
			for _, item := range strings.Split(s, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			return out
		}
	}
	return v.GetStringSlice(key)
}

// envKey returns the environment variable naming key, e.g. SRCBUILD_LOG_FILE.
func envKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// parsePairs splits KEY=VALUE entries. Keys keep their case, which viper
// would not preserve for map keys.
func parsePairs(what string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, d := range pairs {
		k, val, ok := strings.Cut(d, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid %s %q, want KEY=VALUE", what, d)
		}
		out[k] = val
	}
	return out, nil
}
