// hash.go - Content hashes used across the core.

package veilcash

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Hash is a SHA3-256 content hash.
type Hash [32]byte

// HashBytes hashes the concatenation of the given byte slices.
func HashBytes(data ...[]byte) Hash {
	h := sha3.New256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}
