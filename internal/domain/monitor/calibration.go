package monitor

// Default calibration constants. The level scale turns a typical speech RMS
// into a 0..100 meter reading; the rest are empirical thresholds.
const (
	DefaultLevelScale           = 300
	DefaultBufferCapacity       = 100
	DefaultNoiseFloorMinSamples = 50
	DefaultNoiseFloorPercentile = 0.2
	DefaultNoiseFloorEpsilon    = 0.1
	DefaultMaxSNRDB             = 40
	DefaultExcellentAboveDB     = 25
	DefaultGoodAboveDB          = 20
	DefaultFairAboveDB          = 15
	DefaultBackgroundNoiseBelow = 5
	DefaultQuietLocationBelow   = 10
	DefaultDistanceWindow       = 20
	DefaultDistanceMeanMin      = 15
	DefaultDistanceMeanMax      = 80
	DefaultDistanceVarianceMax  = 100

	maxLevel = 100
)

// Calibration holds every tunable constant of the signal pipeline.
type Calibration struct {
	LevelScale           float64
	BufferCapacity       int
	NoiseFloorMinSamples int
	NoiseFloorPercentile float64
	NoiseFloorEpsilon    float64
	MaxSNRDB             float64
	ExcellentAboveDB     float64
	GoodAboveDB          float64
	FairAboveDB          float64
	BackgroundNoiseBelow float64
	QuietLocationBelow   float64
	DistanceWindow       int
	DistanceMeanMin      float64
	DistanceMeanMax      float64
	DistanceVarianceMax  float64
}

// DefaultCalibration returns the stock calibration.
func DefaultCalibration() Calibration {
	return Calibration{
		LevelScale:           DefaultLevelScale,
		BufferCapacity:       DefaultBufferCapacity,
		NoiseFloorMinSamples: DefaultNoiseFloorMinSamples,
		NoiseFloorPercentile: DefaultNoiseFloorPercentile,
		NoiseFloorEpsilon:    DefaultNoiseFloorEpsilon,
		MaxSNRDB:             DefaultMaxSNRDB,
		ExcellentAboveDB:     DefaultExcellentAboveDB,
		GoodAboveDB:          DefaultGoodAboveDB,
		FairAboveDB:          DefaultFairAboveDB,
		BackgroundNoiseBelow: DefaultBackgroundNoiseBelow,
		QuietLocationBelow:   DefaultQuietLocationBelow,
		DistanceWindow:       DefaultDistanceWindow,
		DistanceMeanMin:      DefaultDistanceMeanMin,
		DistanceMeanMax:      DefaultDistanceMeanMax,
		DistanceVarianceMax:  DefaultDistanceVarianceMax,
	}
}

// normalized replaces unusable values with defaults so the pipeline never
// divides by zero or indexes out of range.
func (c Calibration) normalized() Calibration {
	d := DefaultCalibration()
	if !(c.LevelScale > 0) {
		c.LevelScale = d.LevelScale
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = d.BufferCapacity
	}
	if c.NoiseFloorMinSamples <= 0 {
		c.NoiseFloorMinSamples = d.NoiseFloorMinSamples
	}
	if !(c.NoiseFloorPercentile >= 0 && c.NoiseFloorPercentile < 1) {
		c.NoiseFloorPercentile = d.NoiseFloorPercentile
	}
	if !(c.NoiseFloorEpsilon > 0) {
		c.NoiseFloorEpsilon = d.NoiseFloorEpsilon
	}
	if !(c.MaxSNRDB > 0) {
		c.MaxSNRDB = d.MaxSNRDB
	}
	if c.DistanceWindow <= 0 {
		c.DistanceWindow = d.DistanceWindow
	}
	if c.DistanceWindow > c.BufferCapacity {
		c.DistanceWindow = c.BufferCapacity
	}
	return c
}
