package gps

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ClassTPV is the gpsd class marker of a Time-Position-Velocity report.
const ClassTPV = "TPV"

// Mode is the gpsd fix mode of a TPV report.
type Mode int

const (
	ModeUnknown Mode = 0
	ModeNoFix   Mode = 1
	Mode2D      Mode = 2
	Mode3D      Mode = 3
)

// ErrNotTPV is returned by Decode for records of any other class.
var ErrNotTPV = errors.New("record is not a TPV report")

// Fix is a single gpsd TPV report. Fields gpsd may leave out are pointers,
// nil meaning "not reported".
type Fix struct {
	Class  string `json:"class"`
	Device string `json:"device,omitempty"`
	Mode   *Mode  `json:"mode,omitempty"`
	Time   string `json:"time,omitempty"` // RFC 3339, UTC

	Lat   *float64 `json:"lat,omitempty"`   // decimal degrees
	Lon   *float64 `json:"lon,omitempty"`   // decimal degrees
	Alt   *float64 `json:"alt,omitempty"`   // meters
	Track *float64 `json:"track,omitempty"` // degrees from true north
	Speed *float64 `json:"speed,omitempty"` // m/s
	Climb *float64 `json:"climb,omitempty"` // m/s

	// Estimated errors, 95% confidence.
	Ept *float64 `json:"ept,omitempty"` // seconds
	Epx *float64 `json:"epx,omitempty"` // meters
	Epy *float64 `json:"epy,omitempty"` // meters
	Eph *float64 `json:"eph,omitempty"` // meters
	Epv *float64 `json:"epv,omitempty"` // meters
	Eps *float64 `json:"eps,omitempty"` // m/s
	Epc *float64 `json:"epc,omitempty"` // m/s
}

// Decode parses one gpsd JSON line into a Fix. The line must be a JSON
// object whose class is TPV.
func Decode(line string) (Fix, error) {
	var f Fix
	if err := json.Unmarshal([]byte(line), &f); err != nil {
		return Fix{}, fmt.Errorf("gpsd tpv parse failed: %w", err)
	}
	if f.Class != ClassTPV {
		return Fix{}, fmt.Errorf("%w: class %q", ErrNotTPV, f.Class)
	}
	return f, nil
}

// HasPosition reports whether both latitude and longitude are present.
func (f Fix) HasPosition() bool {
	return f.Lat != nil && f.Lon != nil
}

// Timestamp returns the fix time, or false if it is absent or unparsable.
func (f Fix) Timestamp() (time.Time, bool) {
	if f.Time == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, f.Time)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// HorizontalError returns the circular horizontal error in meters, taken
// from eph or, failing that, the larger of epx and epy.
func (f Fix) HorizontalError() (float64, bool) {
	if f.Eph != nil {
		return *f.Eph, true
	}
	switch {
	case f.Epx != nil && f.Epy != nil:
		return max(*f.Epx, *f.Epy), true
	case f.Epx != nil:
		return *f.Epx, true
	case f.Epy != nil:
		return *f.Epy, true
	}
	return 0, false
}
