package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes zerolog with the specified configuration
func InitLogger(level string, format string) {
	InitLoggerTo(os.Stdout, level, format)
}

// InitLoggerTo is InitLogger with an explicit destination
func InitLoggerTo(out io.Writer, level string, format string) {
	// Set time format
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format. Runner logs are read by humans, so console is
	// the default for the deploy step.
	if format == "json" {
		log.Logger = zerolog.New(out).With().
			Timestamp().
			Caller().
			Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}).With().Timestamp().Logger()
	}

	// Add service metadata
	log.Logger = log.With().
		Str("service", "deploy-pages").
		Logger()
}

// RunLogger creates a logger scoped to one workflow run of the deploy step
func RunLogger(runID int64, correlationID string) zerolog.Logger {
	return log.With().
		Int64("run_id", runID).
		Str("correlation_id", correlationID).
		Str("component", "runner").
		Logger()
}

// DeploymentLogger creates a logger for the deployment orchestrator
func DeploymentLogger() zerolog.Logger {
	return log.With().
		Str("component", "deployment").
		Logger()
}

// GitHubLogger creates a logger for GitHub API operations
func GitHubLogger() zerolog.Logger {
	return log.With().
		Str("component", "github").
		Logger()
}
