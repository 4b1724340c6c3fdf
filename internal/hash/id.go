package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
// Chunk caches use it to key decompressed payloads by their store path.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
