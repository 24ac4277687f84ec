package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/opsec-k9/backend/models"
)

var yard = models.Site{ID: 1, Name: "OPSEC Training Yard", Lat: 40.0, Lon: -86.0, RadiusMeters: 500}

func TestEvaluateAtSiteCenter(t *testing.T) {
	res, err := Evaluate(40.0, -86.0, yard)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.DistanceMeters > 0.01 {
		t.Errorf("Expected ~0 distance at center, got %v", res.DistanceMeters)
	}
	if !res.InsideGeofence {
		t.Error("Expected inside geofence at site center")
	}
}

func TestEvaluateFarAway(t *testing.T) {
	// One degree of latitude is about 111km, way past a 500m radius.
	res, err := Evaluate(41.0, -86.0, yard)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.InsideGeofence {
		t.Error("Expected outside geofence ~111km away")
	}
	if res.DistanceMeters < 110000 || res.DistanceMeters > 112500 {
		t.Errorf("Expected ~111km, got %v m", res.DistanceMeters)
	}
}

func TestEvaluateJustInsideRadius(t *testing.T) {
	// ~400m north of center.
	res, err := Evaluate(40.0036, -86.0, yard)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !res.InsideGeofence {
		t.Errorf("Expected inside at %v m", res.DistanceMeters)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	d1, err := Distance(40.0, -86.0, 40.1, -86.2)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	d2, err := Distance(40.1, -86.2, 40.0, -86.0)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestInvalidCoordinates(t *testing.T) {
	for _, c := range []struct{ lat, lon float64 }{
		{math.NaN(), -86.0},
		{40.0, math.Inf(1)},
		{91.0, 0},
		{-91.0, 0},
		{0, 181.0},
		{0, -181.0},
	} {
		_, err := Distance(c.lat, c.lon, 40.0, -86.0)
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("Expected ErrInvalidCoordinate for (%v,%v), got %v", c.lat, c.lon, err)
		}
	}
}
