package loadtest

import (
	"time"

	"github.com/okian/songlab/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumResults     int           // Number of analysis results to generate
	Workers        int           // Number of concurrent HTTP workers
	Timeout        time.Duration // Per-request timeout
	ProcessTimeout time.Duration // How long to wait for a submission to be scored
	PollInterval   time.Duration // Delay between report lookups while waiting
	Seed           uint64        // Generator seed; 0 picks one from the clock
	MissingRate    float64       // Share of metrics dropped to exercise fallbacks
	OutputFile     string        // Where generated results are written; empty skips
	Verbose        bool          // Log every mismatch and failure
}

// Submission is the JSON body posted to /v1/results.
type Submission struct {
	ResultID       string              `json:"result_id"`
	Metrics        model.MetricsRecord `json:"metrics"`
	Interpretation string              `json:"interpretation"`
}

// Result converts the submission to the domain input it carries.
func (s *Submission) Result() model.AnalysisResult {
	return model.AnalysisResult{Metrics: s.Metrics, Interpretation: s.Interpretation}
}

// AckResponse represents the response from a submission.
type AckResponse struct {
	Status    string `json:"status"`
	ResultID  string `json:"result_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Accepted    int
	Duplicate   int
	Rejected    int
	Failed      int
	Fetched     int
	Verified    int
	Mismatched  int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	SubmitTime  time.Duration
	ScoringTime time.Duration
}
