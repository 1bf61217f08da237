// Package dice resolves d20 skill checks with advantage and disadvantage.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Sides is the die every check is rolled on.
const Sides = 20

// Mode selects how the two d20 draws of a check are combined.
type Mode string

const (
	Normal       Mode = "normal"
	Advantage    Mode = "advantage"
	Disadvantage Mode = "disadvantage"
)

// Band is the narrative outcome bucket of a roll.
type Band string

const (
	Success        Band = "success"
	PartialSuccess Band = "partial success"
	Failure        Band = "failure"
)

// Outcome buckets a roll value: 15 and up succeeds, 8 to 14 is a partial
// success, anything lower fails.
func Outcome(roll int) Band {
	switch {
	case roll >= 15:
		return Success
	case roll >= 8:
		return PartialSuccess
	default:
		return Failure
	}
}

// Roll captures a resolved check.
type Roll struct {
	Mode  Mode
	Draws [2]int
	Value int
}

// Roller draws dice from a seeded stream. It is safe for concurrent use so a
// single Roller can serve every session of a process.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller whose stream is fully determined by seed.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Roll draws two d20s and keeps the higher for advantage, the lower for
// disadvantage and the first otherwise. Unknown modes roll as normal.
func (r *Roller) Roll(mode Mode) Roll {
	r.mu.Lock()
	a := r.rng.Intn(Sides) + 1
	b := r.rng.Intn(Sides) + 1
	r.mu.Unlock()

	res := Roll{Mode: mode, Draws: [2]int{a, b}, Value: a}
	switch mode {
	case Advantage:
		res.Value = max(a, b)
	case Disadvantage:
		res.Value = min(a, b)
	default:
		res.Mode = Normal
	}
	return res
}

// Intn returns a value in [0,n) from the roller's stream. It returns 0 when
// n is not positive.
func (r *Roller) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}
