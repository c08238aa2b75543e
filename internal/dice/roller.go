package dice

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

// CryptoRoller implements dice.Roller using crypto/rand, so outcomes are
// not predictable from process state.
type CryptoRoller struct{}

// NewCryptoRoller creates a new crypto-backed roller
func NewCryptoRoller() *CryptoRoller {
	return &CryptoRoller{}
}

// Roll rolls a single die of the given size
func (r *CryptoRoller) Roll(size int) (int, error) {
	if size <= 0 {
		return 0, errors.InvalidArgumentf("die size must be positive, got %d", size)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(size)))
	if err != nil {
		// crypto/rand.Read should never fail on a properly configured system
		return 0, fmt.Errorf("crypto/rand failed: %w", err)
	}
	return int(n.Int64()) + 1, nil
}

// RollN rolls n dice of the given size
func (r *CryptoRoller) RollN(n, size int) ([]int, error) {
	if n <= 0 {
		return nil, errors.InvalidArgumentf("dice count must be positive, got %d", n)
	}
	values := make([]int, n)
	for i := range values {
		v, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// SequenceRoller implements dice.Roller returning a fixed sequence of
// values, cycling when exhausted. For tests.
type SequenceRoller struct {
	values []int
	next   int
}

// NewSequenceRoller creates a roller that yields the given values in order
func NewSequenceRoller(values ...int) *SequenceRoller {
	return &SequenceRoller{values: values}
}

// Roll returns the next value in the sequence
func (r *SequenceRoller) Roll(_ int) (int, error) {
	if len(r.values) == 0 {
		return 1, nil
	}
	v := r.values[r.next%len(r.values)]
	r.next++
	return v, nil
}

// RollN returns the next n values in the sequence
func (r *SequenceRoller) RollN(n, size int) ([]int, error) {
	values := make([]int, n)
	for i := range values {
		v, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Compile-time checks that both rollers satisfy the toolkit interface
var (
	_ dice.Roller = (*CryptoRoller)(nil)
	_ dice.Roller = (*SequenceRoller)(nil)
)
