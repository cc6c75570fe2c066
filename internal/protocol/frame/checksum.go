package frame

// Checksum is the 8-bit Fletcher sum over b: A accumulates bytes, B
// accumulates A, both modulo 256.
func Checksum(b []byte) [2]byte {
	var a, c byte
	for _, x := range b {
		a += x
		c += a
	}
	return [2]byte{a, c}
}

func Verify(b []byte, ck [2]byte) bool {
	return Checksum(b) == ck
}
