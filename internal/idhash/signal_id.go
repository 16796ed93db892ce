// Package idhash computes deterministic identifiers for detected
// signals, so re-running a capture or a forward test yields the same
// IDs for the same ticks.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// ComputeSignalID computes a deterministic signal ID.
// Formula: base58(SHA256(source|timestamp_ns|price|factor_tps)[:16]).
func ComputeSignalID(source string, timestamp time.Time, price, factorTPS float64) string {
	data := fmt.Sprintf("%s|%d|%.6f|%.2f",
		source,
		timestamp.UnixNano(),
		price,
		factorTPS,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:16])
}
