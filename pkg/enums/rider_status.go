package enums

import "fmt"

// RiderStatus tracks rider verification, driven by document completeness.
type RiderStatus string

const (
	RiderStatusInactive            RiderStatus = "inactive"
	RiderStatusPendingVerification RiderStatus = "pending_verification"
	RiderStatusActive              RiderStatus = "active"
)

var validRiderStatuses = []RiderStatus{
	RiderStatusInactive,
	RiderStatusPendingVerification,
	RiderStatusActive,
}

// String implements fmt.Stringer.
func (r RiderStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RiderStatus.
func (r RiderStatus) IsValid() bool {
	for _, candidate := range validRiderStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRiderStatus converts raw input into a RiderStatus.
func ParseRiderStatus(value string) (RiderStatus, error) {
	for _, candidate := range validRiderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rider status %q", value)
}
