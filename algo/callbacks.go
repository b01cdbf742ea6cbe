package algo

// Logger is an optional logging interface that can be provided to the
// controller. *slog.Logger satisfies it.
//
// Example with the standard slog package:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	c := algo.New(chip, algo.WithLogger(logger))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...any)
}

// FaultHook is called for every fault a session records, after it has been
// logged.
type FaultHook func(Fault)
