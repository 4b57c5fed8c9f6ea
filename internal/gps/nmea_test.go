package gps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromRMC(t *testing.T) {
	f, err := FromRMC("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70")
	require.NoError(t, err)

	require.Equal(t, ClassTPV, f.Class)
	require.Equal(t, Mode2D, *f.Mode)
	require.True(t, f.HasPosition())
	require.InDelta(t, 51.5636, *f.Lat, 1e-4)
	require.InDelta(t, -0.704, *f.Lon, 1e-4)
	require.InDelta(t, 173.8*knotsToMS, *f.Speed, 1e-6)
	require.InDelta(t, 231.8, *f.Track, 1e-9)
	require.Equal(t, "1994-06-13T22:05:16Z", f.Time)
}

func TestFromRMCVoid(t *testing.T) {
	f, err := FromRMC("$GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*67")
	require.NoError(t, err)
	require.Equal(t, ModeNoFix, *f.Mode)
}

func TestFromRMCRejects(t *testing.T) {
	_, err := FromRMC("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	require.ErrorIs(t, err, ErrNotTPV)

	_, err = FromRMC("not nmea")
	require.Error(t, err)
}
