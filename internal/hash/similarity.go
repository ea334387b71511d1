package hash

// HammingDistance calculates the Hamming distance between two hashes
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	count := 0
	for xor != 0 {
		count++
		xor &= xor - 1
	}
	return count
}

// Distance is HammingDistance for optional fingerprints. A missing
// fingerprint is maximally distant from everything, itself included.
func Distance(a, b *uint64) int {
	if a == nil || b == nil {
		return Bits
	}
	return HammingDistance(*a, *b)
}

// Similarity maps Distance onto [0,1], 1 meaning identical
func Similarity(a, b *uint64) float64 {
	return 1 - float64(Distance(a, b))/Bits
}
