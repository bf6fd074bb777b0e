// Package telemetry defines the vehicle telemetry sample and the closed sets of
// command kinds and statuses used to classify it.
package telemetry

import (
	"math"
	"time"
)

// Position is a GPS fix in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the fix is within range and not the (0,0) placeholder
// some devices emit when they have no fix.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return false
	}
	return p.Lat != 0 || p.Lon != 0
}

// Sample is one telemetry observation as delivered by the device transport.
// Optional readings are pointers: nil means missing and is never the same as zero.
type Sample struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"d"`
	Position  *Position `json:"pos,omitempty"`

	OdometerMiles *float64 `json:"m,omitempty"`
	SpeedMPH      float64  `json:"s"`
	Heading       *float64 `json:"a,omitempty"`

	Command  Kind     `json:"cmd"`
	Override Override `json:"statusOverride,omitempty"`
	Verbose  bool     `json:"verbose,omitempty"`

	// Display-only fields, carried through the pipeline unchanged.
	EngineHours    *float64 `json:"h,omitempty"`
	GPSAccuracy    int      `json:"g"`
	BatteryPercent *float64 `json:"bp,omitempty"`
	Buffered       bool     `json:"b,omitempty"`
	Online         bool     `json:"online"`
}

// HasPosition reports whether the sample carries a usable fix.
func (s Sample) HasPosition() bool {
	return s.Position != nil && s.Position.Valid()
}

// HasOdometer reports whether the sample carries a finite odometer reading.
func (s Sample) HasOdometer() bool {
	return s.OdometerMiles != nil && !math.IsNaN(*s.OdometerMiles) && !math.IsInf(*s.OdometerMiles, 0)
}

// Float returns a pointer to v. Handy for building samples in code and tests.
func Float(v float64) *float64 { return &v }
