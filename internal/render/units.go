package render

const (
	// A Quake unit is taken to be one inch.
	MPHPerUPS = 3600.0 / (12 * 5280)
	KPHPerUPS = 3600.0 / 39370.1
)

// Readout is a horizontal speed in the units players quote.
type Readout struct {
	UPS float32
	MPH float32
	KPH float32
}

// SpeedReadout converts a world-unit speed into reference units per second
// and road speeds. unitScale is world units per reference unit.
func SpeedReadout(speed, unitScale float32) Readout {
	if unitScale <= 0 {
		unitScale = 1
	}
	ups := speed / unitScale
	return Readout{
		UPS: ups,
		MPH: ups * MPHPerUPS,
		KPH: ups * KPHPerUPS,
	}
}
