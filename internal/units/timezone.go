package units

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ParseOffset parses a UTC offset as sent by export links. Accepted forms are
// "+05:30", "-0800", "Z", and a bare integer number of minutes east of UTC
// ("-300"). The result is the offset in seconds east of UTC.
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || s == "z" {
		return 0, nil
	}

	if minutes, err := strconv.Atoi(s); err == nil && !strings.Contains(s, ":") && len(strings.TrimLeft(s, "+-")) <= 3 {
		if minutes < -14*60 || minutes > 14*60 {
			return 0, fmt.Errorf("offset %d minutes out of range", minutes)
		}
		return minutes * 60, nil
	}

	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	default:
		return 0, fmt.Errorf("offset %q must start with + or -", s)
	}

	s = strings.ReplaceAll(s, ":", "")
	if len(s) != 4 {
		return 0, fmt.Errorf("offset must be HH:MM or HHMM, got %q", s)
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("invalid offset hours: %w", err)
	}
	minutes, err := strconv.Atoi(s[2:])
	if err != nil {
		return 0, fmt.Errorf("invalid offset minutes: %w", err)
	}
	if hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("offset %s out of range", s)
	}
	return sign * (hours*3600 + minutes*60), nil
}

// FormatOffset renders an offset in seconds east of UTC as "+HH:MM".
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// LocationFor resolves an IANA zone name or a UTC offset into a location used
// to format timestamps. An empty zone means UTC.
func LocationFor(zone string) (*time.Location, error) {
	if zone == "" || zone == "UTC" {
		return time.UTC, nil
	}
	if strings.Contains(zone, "/") {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone %s: %w", zone, err)
		}
		return loc, nil
	}
	offset, err := ParseOffset(zone)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		return time.UTC, nil
	}
	return time.FixedZone(FormatOffset(offset), offset), nil
}
