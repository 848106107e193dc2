// Package dice provides the seedable randomness abstraction used for
// accuracy rolls, flight attempts and experience rewards.
package dice

import "fmt"

// Source is the randomness provider owned by one combatant.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// RollResult holds the audit trail for a single dice expression evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d6+3 = [4 5] +3 = 12".
func (r RollResult) String() string {
	return fmt.Sprintf("%s = %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
