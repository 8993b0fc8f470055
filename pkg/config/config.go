// Package config loads render defaults from a TOML file.
//
// The file is optional. Flags given on the command line always win over
// values from the file, and values missing from the file fall back to the
// built-in defaults.
//
//	# ~/.config/qrraster/config.toml
//	scale  = 4
//	margin = 2
//	level  = "high"
//	format = "png"
//	addr   = ":8080"
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/matzehuels/qrraster/pkg/errors"
	"github.com/matzehuels/qrraster/pkg/matrix"
	"github.com/matzehuels/qrraster/pkg/raster"
)

const (
	// FileName is the config file name inside the config directory.
	FileName = "config.toml"

	// DefaultAddr is the listen address of the HTTP endpoint.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultFormat is the artifact format.
	DefaultFormat = "png"

	appName = "qrraster"
)

// Config holds user-level render defaults.
type Config struct {
	Scale  int    `toml:"scale"`
	Margin *int   `toml:"margin"`
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Addr   string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	margin := raster.DefaultMargin
	return Config{
		Scale:  raster.DefaultScale,
		Margin: &margin,
		Level:  string(matrix.DefaultLevel),
		Format: DefaultFormat,
		Addr:   DefaultAddr,
	}
}

// Params returns the raster parameters described by c.
func (c Config) Params() raster.Params {
	p := raster.Params{Scale: c.Scale, Margin: raster.DefaultMargin}
	if c.Margin != nil {
		p.Margin = *c.Margin
	}
	return p
}

// Validate checks the values a config file may set.
func (c Config) Validate() error {
	if err := errors.ValidateDimensions(c.Scale, c.Params().Margin); err != nil {
		return err
	}
	if _, err := matrix.ParseLevel(c.Level); err != nil {
		return err
	}
	if c.Format != "png" && c.Format != "raw" {
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", c.Format)
	}
	return nil
}

// DefaultPath returns the config file location using the XDG standard
// (~/.config/qrraster/config.toml).
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, FileName), nil
}

// Load reads the config file at path from fs and merges it over Default.
// A missing file is not an error when optional is true.
func Load(fs afero.Fs, path string, optional bool) (Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config %s", path)
	}

	var file Config
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
	}

	if file.Scale != 0 {
		cfg.Scale = file.Scale
	}
	if file.Margin != nil {
		cfg.Margin = file.Margin
	}
	if file.Level != "" {
		cfg.Level = file.Level
	}
	if file.Format != "" {
		cfg.Format = file.Format
	}
	if file.Addr != "" {
		cfg.Addr = file.Addr
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	return cfg, nil
}
