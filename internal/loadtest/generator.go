package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/logger"
)

// metricRange is the span a generated metric is drawn from. Spans are a
// little wider than the scoring bounds so clamping gets exercised too.
type metricRange struct {
	key    string
	lo, hi float64
}

var metricRanges = []metricRange{
	{model.MetricF0MeanHz, 90, 700},
	{model.MetricF0MedianHz, 90, 700},
	{model.MetricF1Hz, 250, 1000},
	{model.MetricF2Hz, 300, 3000},
	{model.MetricF3Hz, 1800, 3800},
	{model.MetricChestHeadRatio, 0.3, 3.8},
	{model.MetricClarity, -0.1, 1.1},
	{model.MetricPowerDB, -70, 15},
}

var sentencePool = []string{
	"Warm tone with a rounded onset.",
	"Bright tone that carries well.",
	"Breath support is steady through long phrases.",
	"Solid support in the middle register.",
	"Watch the strain on the top notes.",
	"Avoid pushing volume at phrase ends.",
	"Practise lip trills for five minutes daily.",
	"Warm up with gentle sirens before singing.",
	"Your timbre suggests a lyric voice.",
	"Vowels stay consistent across the range.",
}

// generator produces reproducible random submissions.
type generator struct {
	rng         *rand.Rand
	missingRate float64
}

func newGenerator(seed uint64, missingRate float64) *generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		missingRate: missingRate,
	}
}

func (g *generator) metrics() model.MetricsRecord {
	rec := make(model.MetricsRecord, len(metricRanges))
	for _, r := range metricRanges {
		if g.missingRate > 0 && g.rng.Float64() < g.missingRate {
			continue
		}
		rec[r.key] = r.lo + g.rng.Float64()*(r.hi-r.lo)
	}
	return rec
}

func (g *generator) interpretation() string {
	n := 1 + g.rng.IntN(len(sentencePool)/2)
	picked := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(sentencePool))[:n] {
		picked = append(picked, sentencePool[i])
	}
	sep := " "
	if g.rng.IntN(4) == 0 {
		sep = "\n"
	}
	return strings.Join(picked, sep)
}

func (g *generator) next() Submission {
	return Submission{
		ResultID:       uuid.NewString(),
		Metrics:        g.metrics(),
		Interpretation: g.interpretation(),
	}
}

// generateSubmissions creates config.NumResults submissions with unique ids.
func generateSubmissions(ctx context.Context, config *Config, stats *Stats) ([]Submission, error) {
	if config.NumResults <= 0 {
		return nil, fmt.Errorf("number of results must be positive, got %d", config.NumResults)
	}
	logger.Get().Info(ctx, "generating analysis results", logger.Int("count", config.NumResults))

	g := newGenerator(config.Seed, config.MissingRate)
	subs := make([]Submission, config.NumResults)
	for i := range subs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		subs[i] = g.next()
	}

	stats.Generated = len(subs)
	return subs, nil
}
