// Package units provides the distance and speed unit contract used when
// presenting or exporting vehicle history. Samples are stored in miles and
// miles per hour.
package units

import "strings"

// Unit constants
const (
	MPH  = "mph"
	KPH  = "kph"
	KMPH = "kmph"
)

// KilometersPerMile is the exact international mile.
const KilometersPerMile = 1.609344

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPH, KPH, KMPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// IsMetric reports whether the unit presents distances in kilometres.
func IsMetric(unit string) bool {
	return unit == KPH || unit == KMPH
}

// ConvertDistance converts miles to the distance unit implied by targetUnits.
// Unknown units leave the value in miles.
func ConvertDistance(miles float64, targetUnits string) float64 {
	if IsMetric(targetUnits) {
		return miles * KilometersPerMile
	}
	return miles
}

// ConvertSpeed converts miles per hour to targetUnits.
func ConvertSpeed(mph float64, targetUnits string) float64 {
	if IsMetric(targetUnits) {
		return mph * KilometersPerMile
	}
	return mph
}

// DistanceLabel is the column heading for distances in the given units.
func DistanceLabel(unit string) string {
	if IsMetric(unit) {
		return "Kilometers"
	}
	return "Miles"
}

// SpeedLabel is the column heading for speeds in the given units.
func SpeedLabel(unit string) string {
	if IsMetric(unit) {
		return "km/h"
	}
	return "mph"
}
