// Package token produces the short public handles that address sessions.
package token

import (
	"crypto/rand"
	"math/big"
)

const (
	Length   = 8
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator yields candidate tokens. Results are not unique by
// construction; stores reject collisions and callers retry.
type Generator interface {
	Generate() string
}

// Func adapts a plain function to a Generator.
type Func func() string

func (f Func) Generate() string {
	return f()
}

type random struct{}

// Random returns a Generator drawing Length characters from letters and
// digits.
func Random() Generator {
	return random{}
}

var alphabetSize = big.NewInt(int64(len(alphabet)))

func (random) Generate() string {
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS source is broken
			panic(err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}

// Valid reports whether s has the shape of a generated token.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}
