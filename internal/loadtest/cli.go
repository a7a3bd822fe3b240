package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/songlab/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name. The returned closer flushes the file.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadtest_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWith(io.MultiWriter(os.Stdout, file), format); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `SongLab Load Test Tool
=====================

Submits generated analysis results to a running service, waits for each
one to be scored, then rescores it locally and compares the reports.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9090")
  -results int       Number of results to generate and submit (default 1000)
  -workers int       Number of concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 10s)
  -wait duration     How long to wait for each report (default 30s)
  -missing float     Share of metrics to drop per result (default 0.05)
  -seed uint         Generator seed, 0 for a random one
  -output string     Write generated results to this JSON file
  -log string        Log file (default: loadtest_TIMESTAMP.log)
  -verbose           Log every mismatch and failed request
  -help              Show this help message

Examples:
  go run ./cmd/loadtest -results 50000 -workers 32
  go run ./cmd/loadtest -seed 42 -missing 0.3 -verbose
`)
}
