package mptable

// byteSum adds bytes without wrapping so callers can apply either rule.
func byteSum(b []byte) uint {
	var sum uint
	for _, v := range b {
		sum += uint(v)
	}
	return sum
}

// checksumOK reports whether all bytes sum to zero modulo 256.
func checksumOK(b []byte) bool {
	return byteSum(b)&0xff == 0
}
