package domain

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Validate rejects points outside the WGS84 range.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return Invalid("latitude", "must be between -90 and 90")
	}
	if c.Lon < -180 || c.Lon > 180 {
		return Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}
