package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewRecordID generates a random UUIDv4 for log and audit records
func NewRecordID() string {
	return uuid.NewString()
}

// NewThoughtID generates a mind thought identifier
// Format: thought-<unix millis>-<9 random base36 chars>
func NewThoughtID(now time.Time) string {
	return fmt.Sprintf("thought-%d-%s", now.UnixMilli(), randomSuffix(9))
}

func randomSuffix(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := range out {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms; fall back to uuid entropy
			return uuid.NewString()[:n]
		}
		out[i] = idAlphabet[v.Int64()]
	}
	return string(out)
}
