// Package cmd contains the gateway's command-line entry points.
//
// Following the pattern used by kubectl, hugo, and other standard Go CLI
// tools, all application logic is contained here, leaving main.go as a
// minimal entry point.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/parakeetchat/parakeet/internal/config"
	"github.com/parakeetchat/parakeet/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point for the parakeet binary.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			return runServe()
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	printHelp()
	return nil
}

// initLogger builds the process logger from configuration and installs it
// as the slog default.
func initLogger(cfg *config.Config) *slog.Logger {
	logger := log.New(log.Config{
		Level: parseLogLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printVersion() {
	fmt.Printf("parakeet %s\n", Version)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("Parakeet - multi-tenant chat widget gateway")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  parakeet serve [addr]     Start the HTTP gateway")
	fmt.Println("  parakeet version          Show version information")
	fmt.Println("  parakeet help             Show this help")
	fmt.Println()
	fmt.Println("Configuration is read from environment variables (PARAKEET_*)")
	fmt.Println("and an optional config file; see internal/config for the full")
	fmt.Println("list of settings.")
}
