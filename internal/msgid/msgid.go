// Package msgid draws message identifiers.
//
// Ids are uniform random draws over [1, Max]. They are unique with
// overwhelming probability but carry no ordering: callers order messages by
// timestamp or store insertion order, never by id.
package msgid

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Max is the largest id a Source returns (48-bit range).
const Max int64 = 1<<48 - 1

// Source produces random message ids. It is safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Source seeded from the operating system's entropy pool.
func New() *Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("msgid: reading seed: " + err.Error())
	}
	return &Source{rng: rand.New(rand.NewChaCha8(seed))}
}

// NewSeeded returns a deterministic Source, for tests.
func NewSeeded(seed uint64) *Source {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[:], seed)
	return &Source{rng: rand.New(rand.NewChaCha8(s))}
}

// Next returns the next id in [1, Max].
func (s *Source) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int64N(Max) + 1
}
