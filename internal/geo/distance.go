// Package geo holds distance math and address geocoding.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3958.8

// milesPerDegree approximates one degree of latitude.
const milesPerDegree = 69.0

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is within the coordinate range.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the haversine distance in miles.
func Distance(a, b Point) float64 {
	lat1, lat2 := toRadians(a.Latitude), toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether p lies inside the circle.
func WithinRadius(center, p Point, radiusMiles float64) bool {
	return Distance(center, p) <= radiusMiles
}

// Box is a lat/lng rectangle used to prefilter rows in SQL.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box that contains every point within radiusMiles of
// center. It is wider than the circle; callers refine with Distance.
func BoundingBox(center Point, radiusMiles float64) Box {
	latDelta := radiusMiles / milesPerDegree
	lngDelta := radiusMiles / (milesPerDegree * math.Cos(toRadians(center.Latitude)))
	return Box{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLng: center.Longitude - lngDelta,
		MaxLng: center.Longitude + lngDelta,
	}
}

// Contains reports whether p is inside the box.
func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}
