// Package dice implements dice-notation parsing and rolling on top of the
// rpg-toolkit dice.Roller interface.
package dice

import (
	"regexp"
	"strconv"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

// Notation pattern: <count>d<size> with an optional +N/-N modifier,
// e.g. "1d20", "2d6+3", "4d8-1".
var notationRegex = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Result is the outcome of rolling one dice notation
type Result struct {
	// Notation that was rolled (e.g. "2d6+3")
	Notation string `json:"notation"`

	// Individual dice values that were rolled
	Dice []int32 `json:"dice"`

	// Raw dice total before the modifier
	DiceTotal int32 `json:"dice_total"`

	// Modifier applied to get the final total
	Modifier int32 `json:"modifier"`

	// Final result after applying the modifier
	Total int32 `json:"total"`
}

// Parse validates a dice notation string and returns its parts. Count and
// size must both be positive. A malformed notation is an InvalidArgument
// error.
func Parse(notation string) (count, size, modifier int, err error) {
	matches := notationRegex.FindStringSubmatch(notation)
	if matches == nil {
		return 0, 0, 0, errors.InvalidArgumentf(
			"invalid dice notation: %q (expected format: XdY or XdY+Z)", notation)
	}

	count, err = strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, 0, errors.InvalidArgumentf("invalid dice count in notation: %q", notation)
	}

	size, err = strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, 0, errors.InvalidArgumentf("invalid die size in notation: %q", notation)
	}

	if matches[3] != "" {
		modifier, err = strconv.Atoi(matches[3])
		if err != nil {
			return 0, 0, 0, errors.InvalidArgumentf("invalid modifier in notation: %q", notation)
		}
	}

	if count <= 0 || size <= 0 {
		return 0, 0, 0, errors.InvalidArgumentf("dice count and size must be positive: %q", notation)
	}

	return count, size, modifier, nil
}

// Valid reports whether a notation string parses
func Valid(notation string) bool {
	_, _, _, err := Parse(notation)
	return err == nil
}

// RollNotation rolls the given notation with the provided roller
func RollNotation(roller dice.Roller, notation string) (*Result, error) {
	count, size, modifier, err := Parse(notation)
	if err != nil {
		return nil, err
	}

	values, err := roller.RollN(count, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to roll %s", notation)
	}

	result := &Result{
		Notation: notation,
		Dice:     make([]int32, len(values)),
		Modifier: int32(modifier), // #nosec G115 -- bounded by notation digits
	}
	for i, v := range values {
		result.Dice[i] = int32(v) // #nosec G115 -- die face value
		result.DiceTotal += int32(v)
	}
	result.Total = result.DiceTotal + result.Modifier

	return result, nil
}

// RollInitiative rolls a d20 for turn-order placement
func RollInitiative(roller dice.Roller) (int32, error) {
	v, err := roller.Roll(20)
	if err != nil {
		return 0, errors.Wrap(err, "failed to roll initiative")
	}
	return int32(v), nil // #nosec G115 -- d20 face value
}
