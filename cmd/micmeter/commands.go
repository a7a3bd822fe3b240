package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/okian/songlab/internal/adapters/audio"
	"github.com/okian/songlab/internal/cli"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/monitor"
	"github.com/okian/songlab/internal/domain/scoring"
	"github.com/okian/songlab/internal/domain/session"
	"github.com/okian/songlab/internal/ui"
	"github.com/okian/songlab/pkg/logger"
)

const updateBuffer = 64

// MonitorCmd runs the live meter.
type MonitorCmd struct {
	Duration time.Duration `short:"d" help:"Stop after this long; 0 runs until q is pressed"`
	Device   string        `help:"Capture device, overriding audio_input_device"`
	Format   string        `help:"ffmpeg input format, overriding audio_input_format"`
	Input    string        `short:"i" type:"existingfile" help:"Replay a raw mono PCM16LE file at audio_sample_rate instead of capturing"`
	Plain    bool          `help:"Print one status line per publish interval instead of the full-screen meter"`
}

// Run starts monitoring until the user quits, the duration passes or a
// signal arrives.
func (c *MonitorCmd) Run(env *Env) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, env)
}

func (c *MonitorCmd) source(env *Env) (monitor.Source, string) {
	if c.Input != "" {
		return audio.NewFileSource(c.Input, audio.WithRealtime(env.Config.AudioSampleRate)), c.Input
	}
	ff := env.Config.FFmpeg()
	if c.Device != "" {
		ff.InputDevice = c.Device
	}
	if c.Format != "" {
		ff.InputFormat = c.Format
	}
	return audio.NewFFmpegSource(ff), ff.InputDevice
}

func (c *MonitorCmd) run(ctx context.Context, env *Env) error {
	log := logger.Get().Named("micmeter")
	cfg := env.Config
	src, device := c.source(env)

	store := session.New(uuid.NewString())
	mon := monitor.New(
		monitor.WithCalibration(cfg.Calibration()),
		monitor.WithTickInterval(cfg.TickInterval()),
		monitor.WithWindowSize(cfg.AudioWindowSize),
		monitor.WithLogger(log),
		monitor.WithListener(func(s model.QualitySnapshot) { store.SetSnapshot(s) }),
	)

	if err := mon.Start(ctx, src); err != nil {
		store.Fail(err)
		return fmt.Errorf("monitor %s (%s): %w", device, monitor.FailureKind(err), err)
	}
	done := mon.Done()
	defer func() {
		if err := mon.Stop(); err != nil {
			log.Warn(ctx, "monitor stop failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "monitoring", logger.String("session", store.State().ID), logger.String("device", device))

	if c.Plain {
		return c.runPlain(ctx, env, store, mon, done)
	}
	return c.runTUI(ctx, env, store, mon, done, device)
}

func (c *MonitorCmd) runTUI(ctx context.Context, env *Env, store *session.Store, mon *monitor.Monitor, done <-chan struct{}, device string) error {
	updates := make(chan tea.Msg, updateBuffer)
	quit := make(chan struct{})

	// Drop states the UI has not caught up with; the next one supersedes them.
	unsubscribe := store.Subscribe(func(st session.State) {
		select {
		case updates <- ui.StateMsg{State: st}:
		default:
		}
	})
	defer unsubscribe()

	go func() {
		select {
		case <-done:
		case <-quit:
			return
		}
		select {
		case updates <- ui.DoneMsg{Err: mon.Err()}:
		case <-quit:
		}
	}()

	p := tea.NewProgram(
		ui.NewModel(device, updates, c.Duration),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(env.Stdout),
	)
	final, err := p.Run()
	close(quit)
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}

	if m, ok := final.(ui.Model); ok {
		fmt.Fprintln(env.Stdout, ui.Summary(m))
		return m.Err
	}
	return mon.Err()
}

func (c *MonitorCmd) runPlain(ctx context.Context, env *Env, store *session.Store, mon *monitor.Monitor, done <-chan struct{}) error {
	ticker := time.NewTicker(env.Config.PublishInterval())
	defer ticker.Stop()

	var deadline <-chan time.Time
	if c.Duration > 0 {
		t := time.NewTimer(c.Duration)
		defer t.Stop()
		deadline = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			fmt.Fprintln(env.Stdout, statusLine(store.State()))
			return nil
		case <-done:
			fmt.Fprintln(env.Stdout, statusLine(store.State()))
			return mon.Err()
		case <-ticker.C:
			fmt.Fprintln(env.Stdout, statusLine(store.State()))
		}
	}
}

// statusLine is the plain-mode rendering of one state.
func statusLine(st session.State) string {
	snap := st.Snapshot
	snr := "-"
	if snap.SNRDB != nil {
		snr = fmt.Sprintf("%.1f", *snap.SNRDB)
	}
	floor := "-"
	if snap.NoiseFloor != nil {
		floor = fmt.Sprintf("%.1f", *snap.NoiseFloor)
	}
	env := snap.Environment
	return fmt.Sprintf("stage=%s level=%.0f floor=%s snr=%s quality=%s mic=%t quiet=%t noise=%t distance=%t",
		st.Stage, snap.Level, floor, snr, snap.Quality,
		env.MicPermission, env.QuietLocation, env.BackgroundNoise, env.PhoneDistance)
}

// ScoreCmd renders a report from a saved analysis result.
type ScoreCmd struct {
	File string `arg:"" type:"existingfile" help:"JSON file holding {\"metrics\": {...}, \"interpretation\": \"...\"}"`
	JSON bool   `help:"Print the report as JSON"`
}

// Run scores the file and prints the report.
func (c *ScoreCmd) Run(env *Env) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	var res model.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode %s: %w", c.File, err)
	}

	report := scoring.Evaluate(res)
	logger.Get().Info(context.Background(), "scored result",
		logger.String("file", c.File),
		logger.String("typeCode", report.TypeCode),
		logger.Int("fallbacks", len(scoring.FallbackAxes(report))))

	if c.JSON {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintln(env.Stdout, cli.RenderReport(&report))
	return nil
}
