// Package checksum fingerprints record contents for ETags and change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Match reports whether etag is empty or equals the checksum of data.
func Match(etag string, data []byte) bool {
	return etag == "" || etag == Sum(data)
}
