package model

// QualityClass grades a recording environment from its signal-to-noise ratio.
type QualityClass string

const (
	QualityUnknown   QualityClass = "unknown"
	QualityPoor      QualityClass = "poor"
	QualityFair      QualityClass = "fair"
	QualityGood      QualityClass = "good"
	QualityExcellent QualityClass = "excellent"
)

// Environment holds the readiness checklist shown while recording.
type Environment struct {
	QuietLocation   bool `json:"quietLocation"`
	PhoneDistance   bool `json:"phoneDistance"`
	MicPermission   bool `json:"micPermission"`
	BackgroundNoise bool `json:"backgroundNoise"`
}

// QualitySnapshot is the monitor's view of the live input after a tick.
// NoiseFloor and SNRDB stay nil until there is enough history to estimate them.
type QualitySnapshot struct {
	Level       float64      `json:"level"`
	NoiseFloor  *float64     `json:"noiseFloor"`
	SNRDB       *float64     `json:"snrDb"`
	Quality     QualityClass `json:"qualityClass"`
	Environment Environment  `json:"environment"`
}

// NewQualitySnapshot returns the snapshot a monitor starts from.
func NewQualitySnapshot() QualitySnapshot {
	return QualitySnapshot{Quality: QualityUnknown}
}

// Clone returns a deep copy; the pointer fields are not shared.
func (s QualitySnapshot) Clone() QualitySnapshot {
	out := s
	if s.NoiseFloor != nil {
		v := *s.NoiseFloor
		out.NoiseFloor = &v
	}
	if s.SNRDB != nil {
		v := *s.SNRDB
		out.SNRDB = &v
	}
	return out
}
