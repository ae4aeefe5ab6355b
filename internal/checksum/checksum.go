// Package checksum computes the content hashes that name photo files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// Size is the length of a hex-encoded sum.
const Size = sha256.Size * 2

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FromName extracts the sum a content-addressed file name carries, as in
// "photos/<sum>.jpg". ok is false for names that carry none.
func FromName(name string) (sum string, ok bool) {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	if len(base) != Size {
		return "", false
	}
	if _, err := hex.DecodeString(base); err != nil {
		return "", false
	}
	return strings.ToLower(base), true
}

// Verify reports whether data hashes to sum.
func Verify(data []byte, sum string) bool {
	return Sum(data) == strings.ToLower(sum)
}
