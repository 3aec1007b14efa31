// Command canopya runs the hydroponic growing assistant.
//
// Usage:
//
//	canopya serve --config config.yaml
//	canopya ingest docs/*.pdf
//	canopya chat
//	canopya status
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/canopya/canopya/config"
	"github.com/canopya/canopya/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP server."`
	Chat    ChatCmd    `cmd:"" help:"Chat with the assistant from the terminal."`
	Ingest  IngestCmd  `cmd:"" help:"Ingest documents into the knowledge base."`
	Status  StatusCmd  `cmd:"" help:"Show backend status of a running server."`
	Schema  SchemaCmd  `cmd:"" help:"Generate JSON Schema for the config file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL"`
	LogFile   string `help:"Log file path (empty = stderr)." env:"LOG_FILE"`
	LogFormat string `help:"Log format (simple, verbose)." env:"LOG_FORMAT"`
}

// loadConfig reads the config file when one was given, otherwise runs on
// defaults: embedded vector store and local Ollama.
func (cli *CLI) loadConfig() (*config.Config, error) {
	if cli.Config == "" {
		return config.Default(), nil
	}
	return config.Load(cli.Config)
}

// initLogger applies CLI flags over config file settings.
func (cli *CLI) initLogger(cfg *config.Config) (func(), error) {
	level := cli.LogLevel
	if level == "" {
		level = cfg.Logger.Level
	}
	format := cli.LogFormat
	if format == "" {
		format = cfg.Logger.Format
	}
	file := cli.LogFile
	if file == "" {
		file = cfg.Logger.File
	}

	output := os.Stderr
	cleanup := func() {}
	if file != "" {
		opened, closeFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = opened
		cleanup = closeFn
	}

	logger.Init(logger.ParseLevel(level), output, format)
	return cleanup, nil
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env files: %v\n", err)
		os.Exit(1)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("canopya"),
		kong.Description("Canopya - hydroponic growing assistant"),
		kong.UsageOnError(),
	)

	ctx.FatalIfErrorf(ctx.Run(&cli))
}
