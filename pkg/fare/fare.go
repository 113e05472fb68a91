// Package fare computes trip prices. Pricing is distance-based: the route
// distance times the per-kilometer rate from fare management, plus a fixed
// service charge.
package fare

// DefaultPerKm applies when fare management has no configured rate.
const DefaultPerKm = 10

// ServiceCharge is the fixed surcharge added to every booking.
const ServiceCharge = 20

// Breakdown itemizes a computed fare for receipts.
type Breakdown struct {
	DistanceKm    float64 `json:"distance_km"`
	PerKm         float64 `json:"fare_per_km"`
	Base          float64 `json:"base_fare"`
	ServiceCharge float64 `json:"service_charge"`
	Total         float64 `json:"total_fare"`
}

// Total returns distanceKm * perKm + ServiceCharge.
func Total(distanceKm, perKm float64) float64 {
	return distanceKm*perKm + ServiceCharge
}

// Compute returns the full breakdown for the given distance and rate.
// A non-positive rate falls back to DefaultPerKm.
func Compute(distanceKm, perKm float64) Breakdown {
	if perKm <= 0 {
		perKm = DefaultPerKm
	}
	base := distanceKm * perKm
	return Breakdown{
		DistanceKm:    distanceKm,
		PerKm:         perKm,
		Base:          base,
		ServiceCharge: ServiceCharge,
		Total:         base + ServiceCharge,
	}
}
