// Package phn allocates personal health numbers.
//
// Allocated numbers are not checked against the registry. A collision with an
// existing patient is possible and is reported by the registry as an ordinary
// creation failure.
package phn

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"sync"
)

// Length is the number of digits in a PHN.
const Length = 10

// Allocator draws PHNs from a random source. It is safe for concurrent use.
type Allocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocator returns an Allocator drawing from src. Tests pass a seeded
// source; a nil src seeds a ChaCha8 generator from crypto/rand.
func NewAllocator(src rand.Source) *Allocator {
	if src == nil {
		src = newSeededSource()
	}
	return &Allocator{rng: rand.New(src)}
}

func newSeededSource() rand.Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is unavailable.
		binary.LittleEndian.PutUint64(seed[:], rand.Uint64())
	}
	return rand.NewChaCha8(seed)
}

// Allocate returns a new PHN of Length digits, each drawn uniformly from 0-9.
// Leading zeros are kept.
func (a *Allocator) Allocate() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(byte('0' + a.rng.IntN(10)))
	}
	return b.String()
}

// Resolve returns the trimmed existing PHN, or a freshly allocated one when
// existing is blank.
func Resolve(existing string, a *Allocator) (value string, allocated bool) {
	if v := strings.TrimSpace(existing); v != "" {
		return v, false
	}
	return a.Allocate(), true
}

// Valid reports whether s is exactly Length ASCII digits.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
