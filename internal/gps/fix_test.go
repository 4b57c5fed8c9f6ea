package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const tpvLine = `{"class":"TPV","device":"/dev/ttyUSB0","mode":3,"time":"2021-10-01T12:34:56.000Z",` +
	`"ept":0.005,"lat":37.123456,"lon":-122.123456,"alt":123.4,"epx":4.5,"epy":6.5,"epv":8.1,` +
	`"track":12.5,"speed":3.2,"climb":0.1,"eps":34.11,"epc":23.45}`

func TestDecodeTPV(t *testing.T) {
	f, err := Decode(tpvLine)
	require.NoError(t, err)

	require.Equal(t, ClassTPV, f.Class)
	require.Equal(t, "/dev/ttyUSB0", f.Device)
	require.NotNil(t, f.Mode)
	require.Equal(t, Mode3D, *f.Mode)
	require.True(t, f.HasPosition())
	require.InDelta(t, 37.123456, *f.Lat, 1e-9)
	require.InDelta(t, -122.123456, *f.Lon, 1e-9)
	require.InDelta(t, 123.4, *f.Alt, 1e-9)
	require.InDelta(t, 3.2, *f.Speed, 1e-9)

	ts, ok := f.Timestamp()
	require.True(t, ok)
	require.Equal(t, time.Date(2021, 10, 1, 12, 34, 56, 0, time.UTC), ts)

	he, ok := f.HorizontalError()
	require.True(t, ok)
	require.InDelta(t, 6.5, he, 1e-9)
}

func TestDecodeMinimal(t *testing.T) {
	f, err := Decode(`{"class":"TPV","lat":1.0}`)
	require.NoError(t, err)
	require.False(t, f.HasPosition())
	require.Nil(t, f.Mode)

	_, ok := f.Timestamp()
	require.False(t, ok)
	_, ok = f.HorizontalError()
	require.False(t, ok)
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode(`{"class":"SKY","tag":"TPV"}`)
	require.ErrorIs(t, err, ErrNotTPV)

	_, err = Decode(`{"class":"TPV",`)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotTPV)

	_, err = Decode(`"TPV"`)
	require.Error(t, err)

	_, err = Decode(`{"class":"tpv","lat":1.0,"lon":2.0}`)
	require.ErrorIs(t, err, ErrNotTPV)
}

func TestHorizontalErrorPrefersEph(t *testing.T) {
	f, err := Decode(`{"class":"TPV","eph":2.5,"epx":9,"epy":9}`)
	require.NoError(t, err)

	he, ok := f.HorizontalError()
	require.True(t, ok)
	require.InDelta(t, 2.5, he, 1e-9)
}
