package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashLength is the length in hex characters of a full block hash.
const HashLength = 2 * sha256.Size

// HashHex returns the lowercase hex SHA-256 digest of data.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsHashHex reports whether s looks like a full lowercase hex SHA-256 digest.
func IsHashHex(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
