package abrwave

import (
	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

type Config struct {
	Settings Settings
	DBPath   string
	Logger   Logger
	Storage  Storage
}

type Option func(*Config)

func WithSeparation(n int) Option {
	return func(c *Config) {
		c.Settings.Separation = n
	}
}

func WithTroughSeparation(n int) Option {
	return func(c *Config) {
		c.Settings.TroughSeparation = n
	}
}

func WithSigma(sigma float64) Option {
	return func(c *Config) {
		c.Settings.Sigma = sigma
	}
}

func WithBaseline(baseline float64) Option {
	return func(c *Config) {
		c.Settings.Baseline = baseline
	}
}

func WithGain(gain float64) Option {
	return func(c *Config) {
		c.Settings.Gain = gain
	}
}

func WithVariant(v arf.Variant) Option {
	return func(c *Config) {
		c.Settings.Variant = v
	}
}

func WithIntensityKind(kind waveform.IntensityKind) Option {
	return func(c *Config) {
		c.Settings.IntensityKind = kind
	}
}

func WithArtifactOffset(n int) Option {
	return func(c *Config) {
		c.Settings.ArtifactOffset = n
	}
}

func WithWindowMs(ms float64) Option {
	return func(c *Config) {
		c.Settings.WindowMs = ms
	}
}

func WithGrid(g threshold.Grid) Option {
	return func(c *Config) {
		c.Settings.Grid = g
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		Settings: DefaultSettings(),
		DBPath:   "abrwave.sqlite3",
	}
}
