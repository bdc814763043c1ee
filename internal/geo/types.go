package geo

import "fmt"

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Label returns a best-effort human-readable stand-in for a location that
// was only ever resolved as coordinates.
func (c Coordinates) Label() string {
	return fmt.Sprintf("Near %.4f, %.4f", c.Lat, c.Lng)
}
