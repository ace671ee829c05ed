package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
)

// DeliveryCodeDigits is the length of the numeric code riders relay to
// customers at handoff.
const DeliveryCodeDigits = 5

// GenerateDeliveryCode produces a zero-padded numeric code. Leading zeros
// are valid, so "00417" is a possible output.
func GenerateDeliveryCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < DeliveryCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate delivery code: %w", err)
	}
	return fmt.Sprintf("%0*d", DeliveryCodeDigits, n), nil
}

// HashDeliveryCode stores the code the same way passwords are stored, so a
// database leak never exposes live codes.
func HashDeliveryCode(code string, cfg config.PasswordConfig) (string, error) {
	if len(code) != DeliveryCodeDigits {
		return "", fmt.Errorf("delivery code must be %d digits", DeliveryCodeDigits)
	}
	return HashPassword(code, cfg)
}

// VerifyDeliveryCode reports whether the candidate matches the stored hash.
func VerifyDeliveryCode(code, encoded string) (bool, error) {
	return VerifyPassword(code, encoded)
}
