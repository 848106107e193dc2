package battle

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

var (
	// ErrNotInBattle is returned when an identity is not registered in any battle.
	ErrNotInBattle = errors.New("not in a battle")
	// ErrAlreadyInBattle is returned when starting a battle for a registered identity.
	ErrAlreadyInBattle = errors.New("already in a battle")
	// ErrUnknownCombatant is returned when the roster cannot resolve an identity.
	ErrUnknownCombatant = errors.New("unknown combatant")
	// ErrNotSameBattle is returned when two identities are not fighting each other.
	ErrNotSameBattle = errors.New("not fighting each other")
)

// DefaultMaxEat bounds how many units a single eat command may consume.
const DefaultMaxEat = 10

// Handle identifies one battle. Handles increase monotonically and are never reused.
type Handle uint64

// Registry owns every active battle.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	catalog        *gamedata.Catalog
	logger         *zap.Logger
	initiatorBonus float64
	maxEat         int

	byIdentity map[Identity]Handle
	sessions   map[Handle]*Session
	next       Handle
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithInitiatorBonus adds bonus to the initiator's seeded speed at battle start.
func WithInitiatorBonus(bonus float64) Option {
	return func(r *Registry) { r.initiatorBonus = bonus }
}

// WithMaxEat caps the repetitions of a single Eat call.
func WithMaxEat(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxEat = n
		}
	}
}

// NewRegistry creates an empty Registry validating against catalog.
//
// Precondition: catalog must not be nil.
func NewRegistry(catalog *gamedata.Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog:    catalog,
		logger:     zap.NewNop(),
		maxEat:     DefaultMaxEat,
		byIdentity: make(map[Identity]Handle),
		sessions:   make(map[Handle]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a battle between initiator a and defender b, seeding each
// record with the combatant's current speed.
//
// Precondition: a and b must be distinct identities known to roster.
// Postcondition: on success both identities map to the returned handle and
// both combatants are told whose turn it is; on failure nothing changes.
func (r *Registry) Start(roster Roster, a, b Identity) (Handle, error) {
	if a == b {
		return 0, fmt.Errorf("%s cannot fight itself", a)
	}
	for _, id := range []Identity{a, b} {
		if _, ok := r.byIdentity[id]; ok {
			return 0, fmt.Errorf("%s: %w", id, ErrAlreadyInBattle)
		}
	}
	ca, cb, err := r.pair(roster, a, b)
	if err != nil {
		return 0, err
	}
	speedA, err := ca.Stat(gamedata.StatSpeed)
	if err != nil {
		return 0, err
	}
	speedB, err := cb.Stat(gamedata.StatSpeed)
	if err != nil {
		return 0, err
	}

	r.next++
	h := r.next
	s := newSession(a, b, speedA+r.initiatorBonus, speedB)
	r.sessions[h] = s
	r.byIdentity[a] = h
	r.byIdentity[b] = h

	holder := ca
	if !s.turn(a) {
		holder = cb
	}
	msg := fmt.Sprintf("%s is fighting %s. It is %s's turn.", ca.Name(), cb.Name(), holder.Name())
	ca.Message(msg)
	cb.Message(msg)
	r.logger.Info("battle started",
		zap.Uint64("handle", uint64(h)),
		zap.Stringer("initiator", a),
		zap.Stringer("defender", b),
	)
	return h, nil
}

// End tears down the battle containing id, removing both identities and the
// handle together.
func (r *Registry) End(id Identity) error {
	h, s, err := r.session(id)
	if err != nil {
		return err
	}
	delete(r.byIdentity, s.pair[0])
	delete(r.byIdentity, s.pair[1])
	delete(r.sessions, h)
	r.logger.Info("battle ended", zap.Uint64("handle", uint64(h)), zap.Stringer("by", id))
	return nil
}

// Opponent returns the other identity in id's battle.
func (r *Registry) Opponent(id Identity) (Identity, error) {
	_, s, err := r.session(id)
	if err != nil {
		return Identity{}, err
	}
	return s.other(id), nil
}

// QueueEffect appends effect to id's record for turns resolution passes.
//
// Precondition: turns > 0.
func (r *Registry) QueueEffect(id Identity, effect Effect, turns int) error {
	if turns <= 0 {
		return fmt.Errorf("effect duration must be positive, got %d", turns)
	}
	_, s, err := r.session(id)
	if err != nil {
		return err
	}
	rec := s.record(id)
	rec.Effects = append(rec.Effects, QueuedEffect{Effect: effect, Turns: turns})
	r.logger.Debug("effect queued", zap.Stringer("target", id), zap.Stringer("effect", effect), zap.Int("turns", turns))
	return nil
}

// InBattle reports whether id is registered in a battle.
func (r *Registry) InBattle(id Identity) bool {
	_, ok := r.byIdentity[id]
	return ok
}

// HandleOf returns the handle of id's battle.
func (r *Registry) HandleOf(id Identity) (Handle, bool) {
	h, ok := r.byIdentity[id]
	return h, ok
}

// Count returns the number of active battles.
func (r *Registry) Count() int { return len(r.sessions) }

// Participants lists the identity pair of every active battle, initiator
// first, in the order the battles started.
func (r *Registry) Participants() [][2]Identity {
	out := make([][2]Identity, 0, len(r.sessions))
	for _, h := range slices.Sorted(maps.Keys(r.sessions)) {
		out = append(out, r.sessions[h].pair)
	}
	return out
}

// RecordView is a copy of one combatant's record.
type RecordView struct {
	ID Identity
	Record
}

// Snapshot is a copy of a battle's state.
type Snapshot struct {
	Handle    Handle
	Resolving bool
	// Initiator is the identity that started the battle. Advance should be
	// called with the initiator first so ties go to the defender.
	Initiator Identity
	// Holder is the identity holding the turn.
	Holder  Identity
	Records [2]RecordView
}

// Snapshot copies the state of id's battle. The first record is id's.
func (r *Registry) Snapshot(id Identity) (Snapshot, error) {
	h, s, err := r.session(id)
	if err != nil {
		return Snapshot{}, err
	}
	other := s.other(id)
	return Snapshot{
		Handle:    h,
		Resolving: s.resolving,
		Initiator: s.pair[0],
		Holder:    s.holder(),
		Records: [2]RecordView{
			{ID: id, Record: s.record(id).clone()},
			{ID: other, Record: s.record(other).clone()},
		},
	}, nil
}

// session resolves id to its battle, panicking on inconsistent bookkeeping.
func (r *Registry) session(id Identity) (Handle, *Session, error) {
	h, ok := r.byIdentity[id]
	if !ok {
		return 0, nil, fmt.Errorf("%s: %w", id, ErrNotInBattle)
	}
	s, ok := r.sessions[h]
	if !ok {
		invariant("handle %d registered for %s has no session", h, id)
	}
	if s.pair[0] != id && s.pair[1] != id {
		invariant("handle %d registered for %s belongs to %v", h, id, s.pair)
	}
	return h, s, nil
}

// pair resolves both identities from roster.
func (r *Registry) pair(roster Roster, a, b Identity) (Combatant, Combatant, error) {
	ca, ok := roster.Combatant(a)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", a, ErrUnknownCombatant)
	}
	cb, ok := roster.Combatant(b)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", b, ErrUnknownCombatant)
	}
	return ca, cb, nil
}
