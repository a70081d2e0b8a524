package pkg

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"math/rand"
)

func RandomString(n int) string {
	runes := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	b := make([]rune, n)
	for i := range b {
		b[i] = runes[rand.Intn(len(runes))]
	}
	return string(b)
}

func RandomNumberString(n int) string {
	runes := []rune("0123456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = runes[rand.Intn(len(runes))]
	}
	return string(b)
}

// SecureToken returns a hex-encoded token of 2n characters from crypto/rand.
// Used for bearer redemption tokens, where math/rand is not acceptable.
func SecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := cryptorand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
