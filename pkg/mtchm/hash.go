package mtchm

// FNV-1a 64-bit, matching the hashing policy the original GNS/MTCHM index
// uses (original_source/server/src/engine/hash/mod.rs: Fnv1A64).
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// HashBytes computes the 64-bit FNV-1a hash of b.
func HashBytes(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// HashString computes the 64-bit FNV-1a hash of s without allocating.
func HashString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
