// Package xid generates the opaque identifiers and human-facing product
// codes used across the catalog and the sale ledger.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// ProductCode builds a user-facing SKU: "P" followed by the last eight
// digits of the unix-milli clock and three random digits. Uniqueness is by
// convention, not enforced.
func ProductCode() string {
	millis := time.Now().UnixMilli() % 100_000_000
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("P%08d%03d", millis, suffix)
}
