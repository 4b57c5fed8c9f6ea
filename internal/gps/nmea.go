package gps

import (
	"fmt"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// knotsToMS converts knots to meters per second.
const knotsToMS = 0.514444

// FromRMC parses a single RMC sentence into a Fix. gpsd reports are
// richer; an RMC sentence only carries position, speed and course, so the
// mode is 2D for an active fix and no-fix otherwise.
func FromRMC(line string) (Fix, error) {
	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, fmt.Errorf("nmea parse failed: %w", err)
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, fmt.Errorf("%w: nmea %s", ErrNotTPV, sentence.DataType())
	}
	m := sentence.(nmea.RMC)

	mode := ModeNoFix
	if m.Validity == nmea.ValidRMC {
		mode = Mode2D
	}

	lat := m.Latitude
	lon := m.Longitude
	speed := m.Speed * knotsToMS
	track := m.Course

	f := Fix{
		Class:  ClassTPV,
		Device: "nmea",
		Mode:   &mode,
		Lat:    &lat,
		Lon:    &lon,
		Speed:  &speed,
		Track:  &track,
	}

	if m.Date.Valid && m.Time.Valid {
		year := 2000 + m.Date.YY
		if m.Date.YY >= 80 {
			year = 1900 + m.Date.YY
		}
		ts := time.Date(
			year, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond),
			time.UTC,
		)
		f.Time = ts.Format(time.RFC3339Nano)
	}

	return f, nil
}
