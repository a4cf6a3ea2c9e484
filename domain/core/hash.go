package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for display
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// HashFields hashes an ordered list of key/value pairs. Order matters: the
// caller fixes it so identical inputs always produce identical hashes.
func HashFields(pairs ...string) Hash {
	var data strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		data.WriteString(fmt.Sprintf("%s:%s|", pairs[i], pairs[i+1]))
	}
	return NewHash([]byte(data.String()))
}
