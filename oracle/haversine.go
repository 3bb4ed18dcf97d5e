package oracle

import (
	"context"
	"math"

	"appointment-dispatch/models"
)

// Haversine is the built-in provider: straight-line drive-time estimate
// in minutes at a constant speed. It stands in when no external distance
// provider is configured and never fails.
type Haversine struct {
	// SpeedKph converts distance to minutes. Defaults to 50 when <= 0.
	SpeedKph float64
}

func (h Haversine) Cost(_ context.Context, from, to models.Coordinate) (float64, error) {
	speed := h.SpeedKph
	if speed <= 0 {
		speed = 50
	}
	km := haversineMeters(from.Lat, from.Lng, to.Lat, to.Lng) / 1000
	return km / speed * 60, nil
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
