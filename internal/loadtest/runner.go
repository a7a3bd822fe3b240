// Package loadtest drives a running service with generated analysis
// results and checks every scored report against local scoring.
package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/songlab/pkg/logger"
)

const (
	directoryPermission   = 0750
	defaultProcessTimeout = 30 * time.Second
	defaultPollInterval   = 50 * time.Millisecond
	percentageMultiplier  = 100
)

// Run executes the complete load test and returns the collected stats.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.ProcessTimeout <= 0 {
		config.ProcessTimeout = defaultProcessTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting songlab load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("results", config.NumResults),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Float64("missingRate", config.MissingRate),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subs, err := generateSubmissions(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("result generation failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveSubmissions(ctx, config.OutputFile, subs); err != nil {
			logger.Get().Warn(ctx, "failed to save generated results", logger.Error(err))
		}
	}

	accepted := submitAll(ctx, config, subs, stats)
	if len(accepted) == 0 {
		return stats, fmt.Errorf("no submissions were accepted")
	}

	reports := fetchAll(ctx, config, subs, accepted, stats)
	verifyErr := verifyReports(ctx, config, subs, reports, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	if missing := len(accepted) - stats.Fetched; missing > 0 {
		return stats, fmt.Errorf("%d accepted results were never scored", missing)
	}
	logger.Get().Info(ctx, "load test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)

	// The service answers /healthz with Prometheus metrics.
	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveSubmissions writes the generated results as a JSON array.
func saveSubmissions(ctx context.Context, filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(subs); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Get().Info(ctx, "generated results saved", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.SubmitTime > 0 {
		perSecond = float64(stats.Submitted) / stats.SubmitTime.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("fetched", stats.Fetched),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
