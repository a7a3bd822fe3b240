package scoring

import (
	"strings"

	model "github.com/okian/songlab/internal/domain/model"
)

// EmptyTypeCode is returned when there are no scored axes.
const EmptyTypeCode = "NNNN"

// DeriveTypeCode emits one letter per axis: the positive code for a score
// of zero or more, otherwise the negative code.
func DeriveTypeCode(scores []model.AxisScore) string {
	if len(scores) == 0 {
		return EmptyTypeCode
	}
	var b strings.Builder
	b.Grow(len(scores))
	for _, s := range scores {
		if s.Score >= 0 {
			b.WriteString(s.PositiveCode)
		} else {
			b.WriteString(s.NegativeCode)
		}
	}
	return b.String()
}
