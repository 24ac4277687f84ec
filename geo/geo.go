package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/opsec-k9/backend/models"
)

// ErrInvalidCoordinate is returned for NaN/Inf or out-of-range lat/lon.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const earthRadiusMeters = 6371000.0

type Result struct {
	DistanceMeters float64 `json:"distance_meters"`
	InsideGeofence bool    `json:"inside_geofence"`
}

// Distance returns the haversine (great-circle) distance in meters between
// two lat/lon pairs. Earlier versions of this service subtracted raw degrees,
// which is wrong away from the equator; distances are now real meters.
func Distance(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if err := checkCoord(lat1, lon1); err != nil {
		return 0, err
	}
	if err := checkCoord(lat2, lon2); err != nil {
		return 0, err
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c, nil
}

// Evaluate computes the distance from a reported position to a site center
// and whether it falls inside the site's radius. Pure; safe for concurrent
// use.
func Evaluate(lat, lon float64, site models.Site) (Result, error) {
	d, err := Distance(lat, lon, site.Lat, site.Lon)
	if err != nil {
		return Result{}, err
	}
	return Result{
		DistanceMeters: d,
		InsideGeofence: d <= site.RadiusMeters,
	}, nil
}

func checkCoord(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: not a finite number", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat %v out of range", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lon %v out of range", ErrInvalidCoordinate, lon)
	}
	return nil
}
