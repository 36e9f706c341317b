package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger
type Config struct {
	// Level is a zerolog level name; LOG_LEVEL is used when it is empty
	Level string
	// Output defaults to os.Stderr so stdout stays free for firmware output
	Output  io.Writer
	Console bool
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global logger. Only the first call has any effect
func Configure(cfg Config) {
	once.Do(func() {
		base = newLogger(cfg)
	})
}

func newLogger(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	name := cfg.Level
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	if name != "" {
		if parsed, err := zerolog.ParseLevel(name); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	return zerolog.New(writer).Level(level).With().
		Timestamp().
		Str("service", "autofeed").
		Logger()
}

// Base returns the configured base logger
func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger annotated with the given component name
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
