// Package cot encodes GPS fixes as Cursor-on-Target events.
package cot

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/lincot/internal/config"
	"github.com/relabs-tech/lincot/internal/gps"
)

// UnknownError is the CoT value for an unknown ce/le/hae.
const UnknownError = 9999999.0

// timeFormat is the CoT timestamp layout, millisecond precision in UTC.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Event is the root <event> element.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	How     string   `xml:"how,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	Point   Point    `xml:"point"`
	Detail  Detail   `xml:"detail"`
}

// Point is the event location. Hae is height above the WGS84 ellipsoid,
// ce and le the circular and linear errors, all in meters.
type Point struct {
	Lat Float `xml:"lat,attr"`
	Lon Float `xml:"lon,attr"`
	Hae Float `xml:"hae,attr"`
	Ce  Float `xml:"ce,attr"`
	Le  Float `xml:"le,attr"`
}

// Float is written in plain decimal notation; encoding/xml would use
// exponents for values like 9999999.
type Float float64

func (f Float) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: strconv.FormatFloat(float64(f), 'f', -1, 64)}, nil
}

type Detail struct {
	Contact           Contact           `xml:"contact"`
	Track             *Track            `xml:"track,omitempty"`
	PrecisionLocation PrecisionLocation `xml:"precisionlocation"`
	Remarks           string            `xml:"remarks"`
	Source            Source            `xml:"__lincot"`
}

type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

type Track struct {
	Course Float `xml:"course,attr"`
	Speed  Float `xml:"speed,attr"`
}

type PrecisionLocation struct {
	GeopointSrc string `xml:"geopointsrc,attr"`
	AltSrc      string `xml:"altsrc,attr"`
}

type Source struct {
	Device string `xml:"device,attr,omitempty"`
	Mode   int    `xml:"mode,attr"`
}

// Converter turns fixes into CoT XML.
type Converter struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Hostname is used for the default uid. Defaults to os.Hostname.
	Hostname func() (string, error)
}

// Convert returns the encoded event for f, or nil when f has no usable
// position: lat or lon missing, or a reported mode below 2D.
func (c Converter) Convert(f gps.Fix, cfg config.Config) ([]byte, error) {
	ev, ok := c.Event(f, cfg)
	if !ok {
		return nil, nil
	}

	out, err := xml.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("cot marshal: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Event builds the event for f. The bool is false when Convert would
// decline.
func (c Converter) Event(f gps.Fix, cfg config.Config) (Event, bool) {
	if !f.HasPosition() {
		return Event{}, false
	}
	if f.Mode != nil && *f.Mode < gps.Mode2D {
		return Event{}, false
	}

	now := c.now()
	start := now
	if ts, ok := f.Timestamp(); ok {
		start = ts
	}

	stale := cfg.CoTStale
	if stale <= 0 {
		stale = config.DefaultCoTStale
	}

	uid := cfg.CoTUID
	if uid == "" {
		uid = c.defaultUID()
	}
	callsign := cfg.Callsign
	if callsign == "" {
		callsign = uid
	}
	cotType := cfg.CoTType
	if cotType == "" {
		cotType = config.DefaultCoTType
	}

	ev := Event{
		Version: "2.0",
		UID:     uid,
		Type:    cotType,
		How:     "m-g",
		Time:    now.Format(timeFormat),
		Start:   start.Format(timeFormat),
		Stale:   staleAt(now, start, stale).Format(timeFormat),
		Point: Point{
			Lat: Float(*f.Lat),
			Lon: Float(*f.Lon),
			Hae: UnknownError,
			Ce:  UnknownError,
			Le:  UnknownError,
		},
		Detail: Detail{
			Contact:           Contact{Callsign: callsign},
			PrecisionLocation: PrecisionLocation{GeopointSrc: "GPS", AltSrc: "???"},
			Source:            Source{Device: f.Device},
		},
	}

	if f.Alt != nil {
		ev.Point.Hae = Float(*f.Alt)
		ev.Detail.PrecisionLocation.AltSrc = "GPS"
	}
	if ce, ok := f.HorizontalError(); ok {
		ev.Point.Ce = Float(ce)
	}
	if f.Epv != nil {
		ev.Point.Le = Float(*f.Epv)
	}
	if f.Track != nil || f.Speed != nil {
		tr := &Track{}
		if f.Track != nil {
			tr.Course = Float(*f.Track)
		}
		if f.Speed != nil {
			tr.Speed = Float(*f.Speed)
		}
		ev.Detail.Track = tr
	}
	if f.Mode != nil {
		ev.Detail.Source.Mode = int(*f.Mode)
	}
	ev.Detail.Remarks = remarks(f)

	return ev, true
}

// staleAt is stale seconds after the later of now and start.
func staleAt(now, start time.Time, stale int) time.Time {
	anchor := now
	if start.After(now) {
		anchor = start
	}
	return anchor.Add(time.Duration(stale) * time.Second)
}

func remarks(f gps.Fix) string {
	var parts []string
	if f.Device != "" {
		parts = append(parts, "device: "+f.Device)
	}
	if f.Mode != nil {
		parts = append(parts, fmt.Sprintf("mode: %dD", int(*f.Mode)))
	}
	if f.Climb != nil {
		parts = append(parts, fmt.Sprintf("climb: %.2f m/s", *f.Climb))
	}
	return strings.Join(parts, ", ")
}

func (c Converter) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// defaultUID derives a stable uid from the hostname, so restarts keep
// the same track on the receiving side.
func (c Converter) defaultUID() string {
	hostname := c.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	host, err := hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return "lincot-" + uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)).String()
}
