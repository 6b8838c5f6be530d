package utils

import (
	"crypto/rand"
	"math/big"
)

const temporaryPasswordLength = 8
const letterBytes = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GenerateTemporaryPassword returns a random password for the reset flow.
func GenerateTemporaryPassword() (string, error) {
	b := make([]byte, temporaryPasswordLength)
	limit := big.NewInt(int64(len(letterBytes)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = letterBytes[n.Int64()]
	}
	return string(b), nil
}
