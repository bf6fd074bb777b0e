package serialmux

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banshee-data/vehicle.history/internal/telemetry"
)

const (
	LineTypeSample  = "sample"
	LineTypeAck     = "ack"
	LineTypeUnknown = "unknown"
)

// ClassifyLine inspects a line from the unit and returns a line type token.
// Samples are JSON objects carrying a timestamp; acknowledgements echo a
// command as "OK ..." or "ERR ...".
func ClassifyLine(line string) string {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "{") && strings.Contains(line, `"d"`):
		return LineTypeSample
	case strings.HasPrefix(line, "OK") || strings.HasPrefix(line, "ERR"):
		return LineTypeAck
	default:
		return LineTypeUnknown
	}
}

// DeviceSample is one NDJSON sample line. The vehicle ID is optional when a
// unit is dedicated to one vehicle.
type DeviceSample struct {
	VehicleID string `json:"vid,omitempty"`
	telemetry.Sample
}

// ParseSampleLine decodes one NDJSON sample line.
func ParseSampleLine(line string) (DeviceSample, error) {
	var ds DeviceSample
	if err := json.Unmarshal([]byte(line), &ds); err != nil {
		return ds, fmt.Errorf("failed to parse sample line: %w", err)
	}
	if ds.Timestamp.IsZero() {
		return ds, fmt.Errorf("sample line has no timestamp")
	}
	return ds, nil
}
