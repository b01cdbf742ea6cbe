package algo

import (
	"github.com/moffa90/go-flashalgo/driver"
)

// DefaultPageSize is the page buffer capacity used when none is configured.
const DefaultPageSize = 4096

// Config holds the controller configuration.
type Config struct {
	// BringUp prepares the hardware at the start of every session.
	// Default is driver.NopBringUp.
	BringUp driver.BringUp

	// PageSize is the capacity of the page buffer; verify reads at most
	// this many bytes per chip read. Must be a power of two.
	PageSize int

	// Logger is used for logging operations (optional)
	Logger Logger

	// FaultHook is called for every recorded fault (optional)
	FaultHook FaultHook
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		BringUp:  driver.NopBringUp,
		PageSize: DefaultPageSize,
	}
}

// Option is a functional option for configuring the Controller.
type Option func(*Config)

// WithBringUp sets the hardware bring-up capability run by Init.
//
// Example:
//
//	b := board.New(board.Config{})
//	c := algo.New(b, algo.WithBringUp(b))
func WithBringUp(b driver.BringUp) Option {
	return func(c *Config) {
		if b != nil {
			c.BringUp = b
		}
	}
}

// WithPageSize sets the page buffer capacity. Sizes that are not a
// positive power of two are ignored.
//
// Example:
//
//	c := algo.New(chip, algo.WithPageSize(256))
func WithPageSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size&(size-1) == 0 {
			c.PageSize = size
		}
	}
}

// WithLogger sets a logger for the controller operations.
//
// Example:
//
//	c := algo.New(chip, algo.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithFaultHook sets a function called for every recorded fault.
func WithFaultHook(hook FaultHook) Option {
	return func(c *Config) {
		c.FaultHook = hook
	}
}
