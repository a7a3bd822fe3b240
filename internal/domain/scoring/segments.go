package scoring

import (
	"regexp"
	"strings"

	model "github.com/okian/songlab/internal/domain/model"
)

//nolint:gochecknoglobals // compiled once
var (
	lineBreaks     = regexp.MustCompile(`\n+`)
	sentenceBreaks = regexp.MustCompile(`\.\s+`)
	bulletPrefix   = regexp.MustCompile(`^[-•]\s*`)
)

// splitSentences cuts a line after every period that is followed by
// whitespace, keeping the period with its sentence.
func splitSentences(line string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBreaks.FindAllStringIndex(line, -1) {
		out = append(out, line[start:loc[0]+1])
		start = loc[1]
	}
	return append(out, line[start:])
}

// Sentences breaks free text into cleaned sentences: one or more per line,
// bullet markers removed, blanks dropped.
func Sentences(text string) []string {
	var out []string
	for _, line := range lineBreaks.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, s := range splitSentences(line) {
			s = strings.TrimSpace(bulletPrefix.ReplaceAllString(s, ""))
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func pick(sentences []string, indexes ...int) string {
	for _, i := range indexes {
		if i < len(sentences) {
			return sentences[i]
		}
	}
	return NotReady
}

// Segment assigns sentences to display categories. Strength falls back to
// the first sentence; routine falls back to the third, then the second.
// Anything still missing is NotReady.
func Segment(text string) model.InterpretationSegments {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.InterpretationSegments{
			Tone:     NotReady,
			Strength: NotReady,
			Caution:  NotReady,
			Routine:  NotReady,
			Insight:  NotReady,
		}
	}

	s := Sentences(trimmed)
	return model.InterpretationSegments{
		Tone:     pick(s, 0),
		Strength: pick(s, 1, 0),
		Caution:  pick(s, 2),
		Routine:  pick(s, 3, 2, 1),
		Insight:  trimmed,
	}
}
