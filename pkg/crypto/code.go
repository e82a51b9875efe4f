package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"
)

const (
	// ConfirmationCodeTTL is how long a confirmation code stays valid.
	ConfirmationCodeTTL = 15 * time.Minute
	// UsedConfirmationRetention is how long used codes are kept before purge.
	UsedConfirmationRetention = 24 * time.Hour

	minCode   = 100000
	codeRange = 900000
)

var randReader io.Reader = rand.Reader

// GenerateNumericCode returns a six digit code drawn uniformly from
// [100000, 999999]. Codes are not unique.
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(randReader, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+minCode, 10), nil
}
