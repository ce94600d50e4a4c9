// Package geo converts planar sim coordinates into geographic ones for
// telemetry export. The sim plane is treated as web-mercator style
// projected metres (EPSG:3857) anchored at the map origin, so exported
// points can be rendered on standard map tooling.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when a coordinate string cannot be parsed.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// LonLatFromPlanar converts projected sim metres to EPSG:4326 lon/lat.
func LonLatFromPlanar(x, z float64) (lon, lat float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ = f(x, z, 0)
	return lon, lat
}

// PlanarFromLonLat converts EPSG:4326 lon/lat to projected sim metres.
func PlanarFromLonLat(lon, lat float64) (x, z float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, z, _ = f(lon, lat, 0)
	return x, z
}

// FormatPosition renders a position as "x,z,height" for line-based exports.
func FormatPosition(x, z, height float64) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f", x, z, height)
}

// ParsePosition parses "x,z" or "x,z,height" back into components.
func ParsePosition(s string) (x, z, height float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	x, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	z, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	if len(parts) > 2 {
		height, err = strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, 0, 0, ErrInvalidCoordinates
		}
	}
	return x, z, height, nil
}
