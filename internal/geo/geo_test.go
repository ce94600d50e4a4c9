package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanarLonLatRoundTrip(t *testing.T) {
	lon, lat := LonLatFromPlanar(1200, -340)
	assert.NotZero(t, lon)
	assert.NotZero(t, lat)

	x, z := PlanarFromLonLat(lon, lat)
	assert.InDelta(t, 1200, x, 1e-6)
	assert.InDelta(t, -340, z, 1e-6)
}

func TestOriginMapsToNullIsland(t *testing.T) {
	lon, lat := LonLatFromPlanar(0, 0)
	assert.InDelta(t, 0, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)
}

func TestFormatPosition(t *testing.T) {
	assert.Equal(t, "1.500,-2.250,0.120", FormatPosition(1.5, -2.25, 0.12))
}

func TestParsePosition(t *testing.T) {
	x, z, h, err := ParsePosition("1.5,-2.25,0.12")
	require.NoError(t, err)
	assert.Equal(t, 1.5, x)
	assert.Equal(t, -2.25, z)
	assert.Equal(t, 0.12, h)

	x, z, h, err = ParsePosition("3,4")
	require.NoError(t, err)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, z)
	assert.Zero(t, h)
}

func TestParsePositionErrors(t *testing.T) {
	for _, s := range []string{"", "1", "a,b", "1,b", "1,2,c"} {
		_, _, _, err := ParsePosition(s)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "input %q", s)
	}
}
