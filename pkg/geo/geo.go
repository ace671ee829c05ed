package geo

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

const earthRadiusKM = 6371.0

// transportSpeeds maps a transport mode to an assumed average speed in km/h
// used for ETA estimates. Unknown modes fall back to bike.
var transportSpeeds = map[enums.TransportMode]float64{
	enums.TransportModeBicycle: 12,
	enums.TransportModeBike:    20,
	enums.TransportModeCar:     30,
	enums.TransportModeVan:     30,
	enums.TransportModeTruck:   25,
}

const defaultSpeedKMH = 20

// DistanceKM computes the great-circle distance between two coordinates
// using the haversine formula.
func DistanceKM(lat1, lng1, lat2, lng2 float64) (float64, error) {
	if err := ValidateCoordinate(lat1, lng1); err != nil {
		return 0, err
	}
	if err := ValidateCoordinate(lat2, lng2); err != nil {
		return 0, err
	}

	phi1 := degToRad(lat1)
	phi2 := degToRad(lat2)
	dPhi := degToRad(lat2 - lat1)
	dLambda := degToRad(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c, nil
}

// ValidateCoordinate rejects latitudes outside [-90, 90] and longitudes
// outside [-180, 180].
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return errors.New(
			errors.CodeValidation,
			fmt.Sprintf("invalid coordinate (%f, %f)", lat, lng),
		)
	}
	return nil
}

// SpeedKMH returns the assumed average speed for a transport mode.
func SpeedKMH(mode enums.TransportMode) float64 {
	if speed, ok := transportSpeeds[mode]; ok {
		return speed
	}
	return defaultSpeedKMH
}

// ETAMinutes estimates travel time in minutes for the given distance and
// transport mode, rounded up to the next whole minute.
func ETAMinutes(distanceKM float64, mode enums.TransportMode) int {
	if distanceKM <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKM / SpeedKMH(mode) * 60))
}

// FeePolicy prices a delivery as base fee plus a per-km component.
type FeePolicy struct {
	BaseFee     decimal.Decimal
	PerKMFee    decimal.Decimal
	MaxRadiusKM float64
}

// DeliveryFee returns the delivery fee for a distance, rounded to two
// decimal places. Fractional kilometers are charged pro rata.
func (p FeePolicy) DeliveryFee(distanceKM float64) decimal.Decimal {
	if distanceKM < 0 {
		distanceKM = 0
	}
	perKM := p.PerKMFee.Mul(decimal.NewFromFloat(distanceKM))
	return p.BaseFee.Add(perKM).Round(2)
}

// CheckRadius fails with an out-of-range error when the destination is
// beyond the serviceable radius. The computed distance travels in the
// error details so callers can surface it.
func (p FeePolicy) CheckRadius(distanceKM float64) error {
	if p.MaxRadiusKM > 0 && distanceKM > p.MaxRadiusKM {
		return errors.New(
			errors.CodeOutOfRange,
			"destination outside the vendor service area",
		).WithDetails(map[string]interface{}{
			"distance_km":   roundKM(distanceKM),
			"max_radius_km": p.MaxRadiusKM,
		})
	}
	return nil
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func roundKM(km float64) float64 {
	return math.Round(km*100) / 100
}
