package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator mints opaque run handles. The orchestrator compares handles to
// decide ownership at the job store's write boundary, so handles must be
// unique per run, not merely per process.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator issues 128-bit hex handles from crypto/rand.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
