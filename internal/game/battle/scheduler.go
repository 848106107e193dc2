package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// Turn reports whether id currently holds the turn: its accumulated speed
// strictly exceeds its opponent's. Ties favour the opponent.
func (r *Registry) Turn(id Identity) (bool, error) {
	_, s, err := r.session(id)
	if err != nil {
		return false, err
	}
	return s.turn(id), nil
}

// Resolving reports whether the next Advance on id's battle runs the
// resolution step.
func (r *Registry) Resolving(id Identity) (bool, error) {
	_, s, err := r.session(id)
	if err != nil {
		return false, err
	}
	return s.resolving, nil
}

// Advance runs one scheduler step on the battle shared by a and b.
//
// In the action step exactly one side accrues its speed stat: b when a holds
// the turn and b is not stunned, otherwise a when a is not stunned. Mutual
// stun is broken by ageing Stun effects on both sides until at least one side
// is free. When the turn holder changes the battle switches to the
// resolution step, which resolves effects on the new holder on the next call.
//
// Precondition: a and b must be opponents in the same battle.
// Postcondition: accumulated speeds never decrease.
func (r *Registry) Advance(roster Roster, a, b Identity) error {
	h, s, err := r.session(a)
	if err != nil {
		return err
	}
	if s.other(a) != b {
		return fmt.Errorf("%s and %s: %w", a, b, ErrNotSameBattle)
	}
	ca, cb, err := r.pair(roster, a, b)
	if err != nil {
		return err
	}

	if s.resolving {
		s.resolving = false
		holder := b
		if s.turn(a) {
			holder = a
		}
		return r.resolve(roster, s, holder)
	}

	speedA, err := accrual(ca)
	if err != nil {
		return err
	}
	speedB, err := accrual(cb)
	if err != nil {
		return err
	}

	ra, rb := s.record(a), s.record(b)
	aTurn := s.turn(a)
	switch {
	case aTurn && !rb.Stunned:
		rb.Speed += speedB
	case !ra.Stunned:
		ra.Speed += speedA
	}
	newTurn := s.turn(a)

	for ra.Stunned && rb.Stunned {
		r.reduceStun(ra, ca)
		r.reduceStun(rb, cb)
	}

	if aTurn != newTurn {
		s.resolving = true
		holder := cb
		if newTurn {
			holder = ca
		}
		msg := fmt.Sprintf("It is now %s's turn.", holder.Name())
		ca.Message(msg)
		cb.Message(msg)
		r.logger.Debug("turn changed",
			zap.Uint64("handle", uint64(h)),
			zap.Stringer("holder", s.holder()),
			zap.Float64("speed_a", ra.Speed),
			zap.Float64("speed_b", rb.Speed),
		)
	}
	return nil
}

// accrual returns the amount c adds to its accumulated speed. Negative speed
// stats accrue nothing.
func accrual(c Combatant) (float64, error) {
	v, err := c.Stat(gamedata.StatSpeed)
	if err != nil {
		return 0, err
	}
	return max(v, 0), nil
}

// reduceStun ages only the Stun effects of rec and refreshes its stored flag.
//
// Postcondition: rec.Stunned == rec.hasStun().
func (r *Registry) reduceStun(rec *Record, c Combatant) {
	rec.age(func(e Effect) bool { return e.Kind == EffectStun })
	if rec.Stunned && !rec.hasStun() {
		c.Message("You are no longer stunned.")
	}
	rec.Stunned = rec.hasStun()
}
