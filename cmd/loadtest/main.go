package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/songlab/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumResults  = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultWait        = 30 * time.Second
	defaultMissingRate = 0.05
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numResults  = flag.Int("results", defaultNumResults, "Number of results to generate and submit")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait        = flag.Duration("wait", defaultWait, "How long to wait for each report to be scored")
		missingRate = flag.Float64("missing", defaultMissingRate, "Share of metrics to drop per result")
		seed        = flag.Uint64("seed", 0, "Generator seed, 0 for a random one")
		outputFile  = flag.String("output", "", "Write generated results to this JSON file")
		logFile     = flag.String("log", "", "Log file (default: loadtest_TIMESTAMP.log)")
		logFormat   = flag.String("log-format", "text", "Log format: text or json")
		verbose     = flag.Bool("verbose", false, "Log every mismatch and failed request")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp(os.Stdout)
		return
	}

	closer, err := loadtest.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:        *baseURL,
		NumResults:     *numResults,
		Workers:        *workers,
		Timeout:        *timeout,
		ProcessTimeout: *wait,
		Seed:           *seed,
		MissingRate:    *missingRate,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
	}

	if _, err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		closer.Close()
		os.Exit(1)
	}
}
