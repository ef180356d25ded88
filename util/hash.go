package util

import (
	"fmt"
	"hash/fnv"
)

const hashMask = uint32(0x7fffffff)

// Hash returns a non-negative int hash of the given key.
func Hash(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() & hashMask)
}

// Fingerprint returns a fixed-width hex digest of the given record value,
// a 64-bit FNV-1a hash. Two values compare equal iff their fingerprints do
// (modulo hash collisions, which the verifier accepts as negligible).
func Fingerprint(value []byte) string {
	h := fnv.New64a()
	h.Write(value)
	return fmt.Sprintf("%016x", h.Sum64())
}
