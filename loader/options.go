package loader

import (
	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-flashalgo/algo"
)

// DefaultClock is the target clock passed to Init when none is configured.
const DefaultClock = 400 * physic.MegaHertz

// Config holds the loader configuration.
type Config struct {
	// ProgressCallback is called during the download (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger algo.Logger

	// Clock is passed to every Init
	Clock physic.Frequency

	// ChipErase erases the whole device instead of the touched sectors
	ChipErase bool

	// Verify enables the verify phase
	Verify bool
}

func defaultConfig() Config {
	return Config{
		Clock:  DefaultClock,
		Verify: true,
	}
}

// Option is a functional option for configuring the Loader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track the download.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the loader operations.
func WithLogger(logger algo.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithClock sets the clock passed to Init.
func WithClock(clock physic.Frequency) Option {
	return func(c *Config) {
		if clock > 0 {
			c.Clock = clock
		}
	}
}

// WithChipErase makes the erase phase erase the whole device.
func WithChipErase(enable bool) Option {
	return func(c *Config) {
		c.ChipErase = enable
	}
}

// WithVerify enables or disables the verify phase.
func WithVerify(enable bool) Option {
	return func(c *Config) {
		c.Verify = enable
	}
}
