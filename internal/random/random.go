// Package random generates cryptographically secure random strings.
package random

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// AlphaNumeric is the default alphabet: ASCII letters and digits.
const AlphaNumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength matches the length used for generated upload names.
const DefaultLength = 12

// ErrEmptyAlphabet is returned when no characters are allowed.
var ErrEmptyAlphabet = errors.New("random: alphabet must not be empty")

// String returns a securely generated random string of length characters
// drawn uniformly from alphabet.
func String(length int, alphabet string) (string, error) {
	if alphabet == "" {
		return "", ErrEmptyAlphabet
	}
	if length <= 0 {
		return "", nil
	}

	chars := []rune(alphabet)
	limit := big.NewInt(int64(len(chars)))
	out := make([]rune, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}

// StringDefault returns a DefaultLength string over AlphaNumeric.
func StringDefault() (string, error) {
	return String(DefaultLength, AlphaNumeric)
}
