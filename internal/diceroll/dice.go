// Package diceroll provides the seeded, per-call random source the rest of
// the engine uses for every roll. Never hold a package-level generator: each
// tool call constructs its own Roller from a seed derived from entity ids and
// a timestamp, exactly as the teacher's engine.Instance constructs a fresh
// *rand.Rand per level from NewInstance's seed argument.
package diceroll

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Roller wraps a seeded PRNG with dice-notation helpers.
type Roller struct {
	rng *rand.Rand
}

// New builds a Roller from an explicit seed.
func New(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// SeedFrom derives a deterministic int64 seed from a human-readable string,
// e.g. "stunt-<encounter>-<actor>-<timestamp>".
func SeedFrom(parts ...string) int64 {
	s := strings.Join(parts, "-")
	var h int64 = 1469598103934665603 // FNV-1a 64-bit offset basis 14695981039346656037 with its last digit dropped to fit int64
	for i := 0; i < len(s); i++ {
		h ^= int64(s[i])
		h *= 1099511628211
	}
	return h
}

// D20 rolls a single d20 (1-20 inclusive).
func (r *Roller) D20() int { return r.rng.Intn(20) + 1 }

// Die rolls a single die with the given number of sides (>=1).
func (r *Roller) Die(sides int) int {
	if sides <= 0 {
		return 0
	}
	return r.rng.Intn(sides) + 1
}

// Percent rolls a uniform value in [1,100].
func (r *Roller) Percent() int { return r.rng.Intn(100) + 1 }

// RollDice parses simple "NdM[+K]" dice notation (e.g. "3d6", "1d8+2") and
// returns the total plus the individual rolls.
func (r *Roller) RollDice(notation string) (total int, rolls []int, err error) {
	notation = strings.TrimSpace(notation)
	if notation == "" {
		return 0, nil, fmt.Errorf("empty dice notation")
	}
	mod := 0
	body := notation
	if idx := strings.IndexAny(notation, "+-"); idx > 0 {
		body = notation[:idx]
		modStr := notation[idx:]
		m, err := strconv.Atoi(modStr)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid modifier %q: %w", modStr, err)
		}
		mod = m
	}
	parts := strings.SplitN(body, "d", 2)
	if len(parts) != 2 {
		return 0, nil, fmt.Errorf("invalid dice notation %q", notation)
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid dice count in %q: %w", notation, err)
	}
	sides, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid dice sides in %q: %w", notation, err)
	}
	rolls = make([]int, 0, count)
	for i := 0; i < count; i++ {
		roll := r.Die(sides)
		rolls = append(rolls, roll)
		total += roll
	}
	total += mod
	return total, rolls, nil
}
