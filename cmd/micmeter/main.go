package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/okian/songlab/internal/cli"
	"github.com/okian/songlab/internal/config"
	"github.com/okian/songlab/pkg/logger"
)

var (
	version = "0.1.0"
)

const logFilePermission = 0600

// CLI defines the command-line interface
type CLI struct {
	Version bool   `short:"v" help:"Show version information"`
	Config  string `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	LogFile string `name:"log-file" type:"path" default:"micmeter.log" help:"Log file; the terminal belongs to the meter"`

	Monitor MonitorCmd `cmd:"" default:"1" help:"Show a live input quality meter"`
	Score   ScoreCmd   `cmd:"" help:"Render the report for an analysis result JSON file"`
}

// Env is bound into every command's Run method.
type Env struct {
	Config *config.Config
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("micmeter"),
		kong.Description(cli.Description),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(os.Stdout, version)
		os.Exit(0)
	}

	if cliArgs.Config != "" {
		_ = os.Setenv(config.EnvConfigFile, cliArgs.Config)
	}
	cfg, err := config.Load(context.Background())
	if err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}

	closeLog, err := setupLogging(cliArgs.LogFile, cfg)
	if err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}

	err = kctx.Run(&Env{Config: cfg, Stdout: os.Stdout, Stderr: os.Stderr})
	closeLog()
	if err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// setupLogging sends structured logs to path so they do not tear the TUI.
func setupLogging(path string, cfg *config.Config) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := logger.InitWith(f, cfg.LogFormat); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	return func() { _ = f.Close() }, nil
}
