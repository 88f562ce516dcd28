package file

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

const (
	// CodeLength is the number of symbols in an access code.
	CodeLength = 8

	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// TokenGenerator produces access codes. It is safe for concurrent use.
// Codes are hard to guess but are not a security boundary.
type TokenGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTokenGenerator seeds a generator from the system entropy source.
func NewTokenGenerator() *TokenGenerator {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		// fall back to the runtime-seeded source
		binary.LittleEndian.PutUint64(seed[:8], rand.Uint64())
		binary.LittleEndian.PutUint64(seed[8:16], rand.Uint64())
		binary.LittleEndian.PutUint64(seed[16:24], rand.Uint64())
		binary.LittleEndian.PutUint64(seed[24:], rand.Uint64())
	}
	return &TokenGenerator{rng: rand.New(rand.NewChaCha8(seed))}
}

// NewToken returns a fresh code drawn uniformly from [0-9A-Za-z].
func (g *TokenGenerator) NewToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = codeAlphabet[g.rng.IntN(len(codeAlphabet))]
	}
	return string(code)
}

// ValidCode reports whether code has the shape of an access code.
func ValidCode(code string) bool {
	return len(code) == CodeLength
}
