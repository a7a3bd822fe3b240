package scoring

import (
	"math"
	"strconv"
	"strings"

	model "github.com/okian/songlab/internal/domain/model"
)

// InvalidNote is the glyph for a frequency that cannot be named.
const InvalidNote = "–"

const (
	referenceHz   = 440.0
	referenceNote = 69 // MIDI number of A4
)

var chromatic = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"} //nolint:gochecknoglobals // fixed table

// Practice range rules, checked in order.
const (
	lowRatioBelow   = 1.1
	highRatioAbove  = 2.5
	lowClarityBelow = 0.45
)

func validHz(hz float64) bool {
	return finite(hz) && hz > 0
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// noteNumber is the nearest MIDI note number for hz.
func noteNumber(hz float64) int {
	return roundInt(12*math.Log2(hz/referenceHz) + referenceNote)
}

// HzToNote names the nearest equal-tempered note, e.g. 440 -> "A4".
func HzToNote(hz float64) string {
	if !validHz(hz) {
		return InvalidNote
	}
	n := noteNumber(hz)
	octave := floorDiv(n, 12) - 1
	return chromatic[((n%12)+12)%12] + strconv.Itoa(octave)
}

// NoteToHz converts a note name such as "A4", "C#3" or "Bb2" back to its
// frequency. ok is false when the name cannot be parsed.
func NoteToHz(note string) (hz float64, ok bool) {
	note = strings.TrimSpace(note)
	if len(note) < 2 {
		return math.NaN(), false
	}

	idx := -1
	for i, name := range chromatic {
		if name == strings.ToUpper(note[:1]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return math.NaN(), false
	}

	rest := note[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		idx++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		idx--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return math.NaN(), false
	}

	n := (octave+1)*12 + idx
	return referenceHz * math.Pow(2, float64(n-referenceNote)/12), true
}

// ShiftPitch moves hz by a number of semitones. Invalid input yields NaN.
func ShiftPitch(hz, semitones float64) float64 {
	if !validHz(hz) || !finite(semitones) {
		return math.NaN()
	}
	return hz * math.Pow(2, semitones/12)
}

// FormatRange renders "<low> ~ <high>" around center. ok is false when the
// center or either bound is not a usable frequency.
func FormatRange(center, lower, upper float64) (string, bool) {
	if !validHz(center) {
		return "", false
	}
	lo := ShiftPitch(center, lower)
	hi := ShiftPitch(center, upper)
	if !finite(lo) || !finite(hi) {
		return "", false
	}
	return HzToNote(lo) + " ~ " + HzToNote(hi), true
}

func rangeOrNotReady(center, lower, upper float64) string {
	if s, ok := FormatRange(center, lower, upper); ok {
		return s
	}
	return NotReady
}

// DerivePitchZones picks the stability range around the median pitch and a
// practice range shaped by the chest/head balance and clarity.
func DerivePitchZones(rec model.MetricsRecord) model.PitchZones {
	if rec == nil {
		return model.PitchZones{Stability: NotReady, Practice: NotReady}
	}

	median := rec.Value(model.MetricF0MedianHz)
	ratio, hasRatio := rec.Lookup(model.MetricChestHeadRatio)
	clarity, hasClarity := rec.Lookup(model.MetricClarity)

	center, lower, upper := median, -2.0, 2.0
	switch {
	case hasRatio && ratio < lowRatioBelow:
		center, lower, upper = ShiftPitch(median, 3), -1, 5
	case hasRatio && ratio > highRatioAbove:
		center, lower, upper = ShiftPitch(median, -3), -5, 1
	case hasClarity && clarity < lowClarityBelow:
		lower, upper = -1, 3
	}

	return model.PitchZones{
		Stability: rangeOrNotReady(median, -2, 2),
		Practice:  rangeOrNotReady(center, lower, upper),
	}
}
