package common

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RandomString returns n characters drawn uniformly from alphabet using the
// system CSPRNG.
func RandomString(alphabet string, n int) string {
	if n <= 0 || alphabet == "" {
		return ""
	}
	size := big.NewInt(int64(len(alphabet)))

	var b strings.Builder
	b.Grow(n)
	for range n {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
