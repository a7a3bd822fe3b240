package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/logger"
)

// errNotScored means the report is not in the store yet.
var errNotScored = errors.New("report not scored yet")

// submitOutcome classifies one POST /v1/results call.
type submitOutcome int

const (
	outcomeSkipped submitOutcome = iota
	outcomeAccepted
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request against path.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// forEach runs fn over n indices with the given number of workers.
func forEach(ctx context.Context, workers, n int, fn func(i int)) {
	if workers < 1 {
		workers = 1
	}
	idx := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				fn(i)
			}
		}()
	}
	func() {
		defer close(idx)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case idx <- i:
			}
		}
	}()
	wg.Wait()
}

// submitAll posts every submission and returns the indices that were
// accepted for scoring.
func submitAll(ctx context.Context, config *Config, subs []Submission, stats *Stats) []int {
	log := logger.Get()
	log.Info(ctx, "submitting results", logger.Int("count", len(subs)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.BaseURL, config.Timeout)
	outcomes := make([]submitOutcome, len(subs))
	var submitted atomic.Int64

	start := time.Now()
	forEach(ctx, config.Workers, len(subs), func(i int) {
		outcomes[i] = submitOne(ctx, client, &subs[i])
		submitted.Add(1)
		if outcomes[i] != outcomeAccepted && config.Verbose {
			log.Warn(ctx, "submission not accepted",
				logger.String("resultID", subs[i].ResultID),
				logger.Int("outcome", int(outcomes[i])))
		}
	})
	stats.SubmitTime = time.Since(start)

	accepted := make([]int, 0, len(subs))
	for i := range outcomes {
		switch outcomes[i] {
		case outcomeAccepted:
			stats.Accepted++
			accepted = append(accepted, i)
		case outcomeDuplicate:
			stats.Duplicate++
		case outcomeRejected:
			stats.Rejected++
		case outcomeFailed:
			stats.Failed++
		case outcomeSkipped:
		}
	}
	stats.Submitted = int(submitted.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("elapsed", stats.SubmitTime))
	return accepted
}

func submitOne(ctx context.Context, client *HTTPClient, sub *Submission) submitOutcome {
	resp, err := client.Post(ctx, "/v1/results", sub)
	if err != nil {
		return outcomeFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return outcomeFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Duplicate {
			return outcomeAccepted
		}
		return outcomeDuplicate
	case http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// fetchReport reads one stored report.
func fetchReport(ctx context.Context, client *HTTPClient, id string) (model.Report, error) {
	resp, err := client.Get(ctx, "/v1/results/"+url.PathEscape(id))
	if err != nil {
		return model.Report{}, fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return model.Report{}, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.Report{}, errNotScored
	default:
		return model.Report{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var report model.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return model.Report{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return report, nil
}

// awaitReport polls until the report is scored or the wait expires.
func awaitReport(ctx context.Context, client *HTTPClient, id string, wait, every time.Duration) (model.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		report, err := fetchReport(ctx, client, id)
		if !errors.Is(err, errNotScored) {
			return report, err
		}
		select {
		case <-ctx.Done():
			return model.Report{}, fmt.Errorf("%s: %w", id, errNotScored)
		case <-time.After(every):
		}
	}
}

// fetchAll waits for the accepted submissions and returns their reports by
// submission index.
func fetchAll(ctx context.Context, config *Config, subs []Submission, accepted []int, stats *Stats) map[int]model.Report {
	log := logger.Get()
	client := newHTTPClient(config.BaseURL, config.Timeout)

	var mu sync.Mutex
	reports := make(map[int]model.Report, len(accepted))

	start := time.Now()
	forEach(ctx, config.Workers, len(accepted), func(j int) {
		i := accepted[j]
		report, err := awaitReport(ctx, client, subs[i].ResultID, config.ProcessTimeout, config.PollInterval)
		if err != nil {
			if config.Verbose {
				log.Warn(ctx, "report not retrieved", logger.String("resultID", subs[i].ResultID), logger.Error(err))
			}
			return
		}
		mu.Lock()
		reports[i] = report
		mu.Unlock()
	})
	stats.ScoringTime = time.Since(start)
	stats.Fetched = len(reports)

	log.Info(ctx, "report retrieval completed",
		logger.Int("fetched", stats.Fetched),
		logger.Int("missing", len(accepted)-stats.Fetched),
		logger.Duration("elapsed", stats.ScoringTime))
	return reports
}
