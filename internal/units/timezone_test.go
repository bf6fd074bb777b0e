package units

import (
	"testing"
	"time"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"Z", 0, false},
		{"+05:30", 5*3600 + 30*60, false},
		{"-08:00", -8 * 3600, false},
		{"-0800", -8 * 3600, false},
		{"-300", -300 * 60, false},
		{"60", 3600, false},
		{"+25:00", 0, true},
		{"05:00", 0, true},
		{"-9999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOffset(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOffset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseOffset(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatOffset(t *testing.T) {
	if got := FormatOffset(-5*3600 - 30*60); got != "-05:30" {
		t.Errorf("FormatOffset = %q", got)
	}
	if got := FormatOffset(0); got != "+00:00" {
		t.Errorf("FormatOffset = %q", got)
	}
}

func TestLocationFor(t *testing.T) {
	loc, err := LocationFor("-04:00")
	if err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).In(loc)
	if ts.Hour() != 8 {
		t.Errorf("expected 08:00 local, got %v", ts)
	}

	loc, err = LocationFor("")
	if err != nil || loc != time.UTC {
		t.Errorf("empty zone should be UTC, got %v %v", loc, err)
	}

	if _, err := LocationFor("Not/AZone"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestIsTimezoneValid(t *testing.T) {
	if !IsTimezoneValid("UTC") {
		t.Error("UTC should be valid")
	}
	if IsTimezoneValid("") {
		t.Error("empty should be invalid")
	}
}
