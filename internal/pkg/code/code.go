package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const digits = "0123456789"

// DefaultLength is the documented default confirmation-code length.
const DefaultLength = 6

// Generate returns a fixed-length confirmation code drawn uniformly from the
// digits 0-9 using crypto/rand. The code guards account activation, so a
// predictable source (math/rand, time seeds) is not acceptable here.
func Generate(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		b[i] = digits[n.Int64()]
	}
	return string(b), nil
}
