package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	monitor "github.com/okian/songlab/internal/domain/monitor"
)

func TestDecodePCM16(t *testing.T) {
	t.Parallel()

	dst := make([]float64, 4)
	n := DecodePCM16([]byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F, 0x01}, dst)
	if n != 3 {
		t.Fatalf("expected 3 samples, got %d", n)
	}
	if dst[0] != 0.5 || dst[1] != -0.5 {
		t.Fatalf("unexpected samples: %v", dst[:n])
	}
	if dst[2] >= 1 || dst[2] < 0.99 {
		t.Fatalf("unexpected max sample: %v", dst[2])
	}
}

func TestEncodePCM16RoundTrip(t *testing.T) {
	t.Parallel()

	in := []float64{0, 0.25, -0.25, 0.5, -1, 2}
	out := make([]float64, len(in))
	DecodePCM16(EncodePCM16(in), out)

	want := []float64{0, 0.25, -0.25, 0.5, -1, 32767.0 / 32768.0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("sample %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestWindowBufferLatestWindow(t *testing.T) {
	t.Parallel()

	w := NewWindowBuffer(4)
	dst := make([]float64, 4)

	if n, err := w.ReadWindow(dst); n != 0 || err != nil {
		t.Fatalf("empty buffer should yield nothing, got n=%d err=%v", n, err)
	}

	w.Write([]float64{1, 2, 3})
	w.Write([]float64{4, 5})
	n, err := w.ReadWindow(dst)
	if err != nil || n != 4 {
		t.Fatalf("unexpected read: n=%d err=%v", n, err)
	}
	if got := dst[:n]; got[0] != 2 || got[3] != 5 {
		t.Fatalf("expected newest samples oldest first, got %v", got)
	}

	if n, _ := w.ReadWindow(dst); n != 0 {
		t.Fatalf("a second read without new data should be empty, got %d", n)
	}

	w.Write([]float64{9})
	small := make([]float64, 2)
	if n, _ := w.ReadWindow(small); n != 2 || small[0] != 5 || small[1] != 9 {
		t.Fatalf("unexpected small window: %v", small[:n])
	}
}

func TestWindowBufferPCMSplitSample(t *testing.T) {
	t.Parallel()

	w := NewWindowBuffer(8)
	if _, err := w.WritePCM16([]byte{0x00, 0x40, 0x00}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := w.WritePCM16([]byte{0xC0}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	dst := make([]float64, 8)
	n, _ := w.ReadWindow(dst)
	if n != 2 || dst[0] != 0.5 || dst[1] != -0.5 {
		t.Fatalf("unexpected samples: %v", dst[:n])
	}
}

func TestWindowBufferClose(t *testing.T) {
	t.Parallel()

	w := NewWindowBuffer(4)
	w.Write([]float64{0.1})
	boom := errors.New("socket closed")
	w.CloseWithError(boom)
	w.CloseWithError(nil)

	dst := make([]float64, 4)
	if n, err := w.ReadWindow(dst); n != 1 || err != nil {
		t.Fatalf("pending samples should drain first, got n=%d err=%v", n, err)
	}
	if _, err := w.ReadWindow(dst); !errors.Is(err, boom) {
		t.Fatalf("expected close error, got %v", err)
	}
	if _, err := w.WritePCM16([]byte{0, 0}); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected closed pipe, got %v", err)
	}
}

func TestReaderSource(t *testing.T) {
	t.Parallel()

	pcm := EncodePCM16([]float64{0.5, 0.5, -0.5, -0.5, 0.25})
	stream, err := NewReaderSource(bytes.NewReader(pcm)).Open(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer stream.Close()

	dst := make([]float64, 2)
	var got []float64
	for {
		n, err := stream.ReadWindow(dst)
		got = append(got, dst[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}
	if len(got) != 5 || got[4] != 0.25 {
		t.Fatalf("unexpected samples: %v", got)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.pcm")).Open(context.Background())
	if !errors.Is(err, monitor.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestFFmpegSourceStreamsWindows(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf '\\x00\\x40\\x00\\x40\\x00\\x40\\x00\\x40'\nexec sleep 2\n")
	src := NewFFmpegSource(FFmpegConfig{Command: script, WindowSize: 4, StopGrace: 200 * time.Millisecond})

	stream, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	dst := make([]float64, 4)
	deadline := time.Now().Add(2 * time.Second)
	n := 0
	for n == 0 && time.Now().Before(deadline) {
		n, err = stream.ReadWindow(dst)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n != 4 || dst[0] != 0.5 {
		t.Fatalf("unexpected window: n=%d %v", n, dst)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestFFmpegSourceEarlyExit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stderr string
		want   error
	}{
		{name: "denied", stderr: "pulse: Permission denied", want: monitor.ErrPermission},
		{name: "missing", stderr: "no such device", want: monitor.ErrDevice},
	}
	for _, tc := range cases {
		script := writeScript(t, tc.name+".sh", "#!/usr/bin/env bash\necho '"+tc.stderr+"' 1>&2\nexit 1\n")
		_, err := NewFFmpegSource(FFmpegConfig{Command: script, StartupGrace: time.Second}).Open(context.Background())
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !strings.Contains(err.Error(), "exited before capture started") {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestFFmpegSourceMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := NewFFmpegSource(FFmpegConfig{Command: "songlab-no-such-ffmpeg"}).Open(context.Background())
	if !errors.Is(err, monitor.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestFFmpegSourceArgs(t *testing.T) {
	t.Parallel()

	args := strings.Join(NewFFmpegSource(FFmpegConfig{InputFormat: "alsa", InputDevice: "hw:1", SampleRate: 22050}).Args(), " ")
	for _, want := range []string{"-f alsa", "-i hw:1", "-ac 1", "-ar 22050", "-f s16le -"} {
		if !strings.Contains(args, want) {
			t.Fatalf("missing %q in %q", want, args)
		}
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestReaderSourceRealtime(t *testing.T) {
	t.Parallel()

	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = float64(i%100) / 200
	}
	clock := &fakeClock{t: time.Unix(0, 0)}
	src := NewReaderSource(bytes.NewReader(EncodePCM16(samples)), WithRealtime(1000))
	src.now = clock.now
	stream, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer stream.Close()

	dst := make([]float64, 100)
	if n, err := stream.ReadWindow(dst); n != 0 || err != nil {
		t.Fatalf("nothing should be due at start, got n=%d err=%v", n, err)
	}

	// 16ms at 1kHz releases 16 samples, not a whole window.
	clock.advance(16 * time.Millisecond)
	if n, err := stream.ReadWindow(dst); n != 16 || err != nil {
		t.Fatalf("expected 16 samples, got n=%d err=%v", n, err)
	}
	if n, _ := stream.ReadWindow(dst); n != 0 {
		t.Fatalf("no new samples should be due, got %d", n)
	}

	// The window slides once it is full.
	clock.advance(134 * time.Millisecond)
	n, err := stream.ReadWindow(dst)
	if n != 100 || err != nil {
		t.Fatalf("expected a full window, got n=%d err=%v", n, err)
	}
	if d := dst[99] - samples[149]; d > 1e-3 || d < -1e-3 {
		t.Fatalf("window should end at sample 149: got %v want %v", dst[99], samples[149])
	}

	clock.advance(10 * time.Second)
	for i := 0; i < 3; i++ {
		if _, err = stream.ReadWindow(dst); err != nil {
			break
		}
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after the recording's duration, got %v", err)
	}
}
