package enums

import "fmt"

// TransportMode is the vehicle class a rider delivers with. It drives the
// average speed used for ETA estimates.
type TransportMode string

const (
	TransportModeBicycle TransportMode = "bicycle"
	TransportModeBike    TransportMode = "bike"
	TransportModeCar     TransportMode = "car"
	TransportModeVan     TransportMode = "van"
	TransportModeTruck   TransportMode = "truck"
)

var validTransportModes = []TransportMode{
	TransportModeBicycle,
	TransportModeBike,
	TransportModeCar,
	TransportModeVan,
	TransportModeTruck,
}

// String implements fmt.Stringer.
func (m TransportMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known TransportMode.
func (m TransportMode) IsValid() bool {
	for _, candidate := range validTransportModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseTransportMode converts raw input into a TransportMode.
func ParseTransportMode(value string) (TransportMode, error) {
	for _, candidate := range validTransportModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transport mode %q", value)
}
