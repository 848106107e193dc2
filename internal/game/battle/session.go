package battle

import "fmt"

// Record is one combatant's state inside a battle.
type Record struct {
	Speed   float64
	Stunned bool
	Effects []QueuedEffect
}

// hasStun reports whether any Stun effect is queued.
func (r *Record) hasStun() bool {
	for _, q := range r.Effects {
		if q.Effect.Kind == EffectStun {
			return true
		}
	}
	return false
}

// age decrements every effect matched by match and evicts those reaching zero.
// Effects not matched are left untouched.
//
// Postcondition: every remaining effect has Turns > 0.
func (r *Record) age(match func(Effect) bool) {
	out := r.Effects[:0]
	for _, q := range r.Effects {
		if match(q.Effect) {
			q.Turns--
		}
		if q.Turns > 0 {
			out = append(out, q)
		}
	}
	// Clear the evicted tail.
	for i := len(out); i < len(r.Effects); i++ {
		r.Effects[i] = QueuedEffect{}
	}
	r.Effects = out
}

func (r *Record) clone() Record {
	c := *r
	c.Effects = make([]QueuedEffect, len(r.Effects))
	for i, q := range r.Effects {
		c.Effects[i] = QueuedEffect{Effect: Effect{Kind: q.Effect.Kind, Amounts: q.Effect.Amounts.Clone()}, Turns: q.Turns}
	}
	return c
}

// Session is the per-battle state: two records and the shared phase flag.
type Session struct {
	pair      [2]Identity
	records   [2]*Record
	resolving bool
}

func newSession(a, b Identity, speedA, speedB float64) *Session {
	return &Session{
		pair:    [2]Identity{a, b},
		records: [2]*Record{{Speed: speedA}, {Speed: speedB}},
	}
}

func (s *Session) slot(id Identity) int {
	switch id {
	case s.pair[0]:
		return 0
	case s.pair[1]:
		return 1
	}
	invariant("session %v does not contain %s", s.pair, id)
	return -1
}

func (s *Session) record(id Identity) *Record {
	return s.records[s.slot(id)]
}

func (s *Session) other(id Identity) Identity {
	return s.pair[1-s.slot(id)]
}

// turn reports whether id's accumulated speed strictly exceeds its opponent's.
func (s *Session) turn(id Identity) bool {
	i := s.slot(id)
	return s.records[i].Speed > s.records[1-i].Speed
}

// holder returns the identity currently holding the turn. Ties go to the
// second member of the pair.
func (s *Session) holder() Identity {
	if s.turn(s.pair[0]) {
		return s.pair[0]
	}
	return s.pair[1]
}

// invariant aborts on registry bookkeeping corruption. These states are not
// reachable through the exported API.
func invariant(format string, args ...any) {
	panic(fmt.Sprintf("battle: invariant violated: "+format, args...))
}
