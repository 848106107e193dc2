package battle

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

var (
	// ErrCannotAfford is returned when an ability's stat costs exceed what the user has.
	ErrCannotAfford = errors.New("cannot afford")
	// ErrMissingItem is returned when a required or consumed item is not held.
	ErrMissingItem = errors.New("missing item")
	// ErrInedible is returned when eating an item without an eat ability.
	ErrInedible = errors.New("cannot be eaten")
)

// Outcome describes a successful ability invocation.
type Outcome struct {
	// Missed is set when the accuracy roll failed and nothing was applied.
	Missed bool
	// InBattle is set when effects were queued against an opponent.
	InBattle bool
}

// Apply invokes ability for user. When user is in a battle, damage is queued
// on the opponent and block and counter on user, each lasting ability.Turns().
// Stat and inventory changes apply whether or not a battle is in progress.
//
// A failed accuracy roll is a successful Outcome with Missed set. Affordability
// failures return ErrCannotAfford or ErrMissingItem and change nothing.
func (r *Registry) Apply(roster Roster, user Identity, ability *gamedata.AbilityDef, usedItem string) (Outcome, error) {
	c, ok := roster.Combatant(user)
	if !ok {
		return Outcome{}, fmt.Errorf("%s: %w", user, ErrUnknownCombatant)
	}
	var (
		opp   Combatant
		oppID Identity
	)
	if _, s, err := r.session(user); err == nil {
		oppID = s.other(user)
		if opp, ok = roster.Combatant(oppID); !ok {
			return Outcome{}, fmt.Errorf("%s: %w", oppID, ErrUnknownCombatant)
		}
	}

	accuracy, err := c.Stat(gamedata.StatAccuracy)
	if err != nil {
		return Outcome{}, err
	}
	rng := c.Rand()
	if rng.Float64() > ability.Accuracy || rng.Float64() > accuracy {
		c.Message(fmt.Sprintf("Your %s misses.", ability.Name))
		if opp != nil {
			opp.Message(fmt.Sprintf("%s's %s misses you.", c.Name(), ability.Name))
		}
		r.logger.Debug("ability missed", zap.Stringer("user", user), zap.String("ability", ability.ID))
		return Outcome{Missed: true}, nil
	}

	if err := CanAfford(c, ability); err != nil {
		return Outcome{}, err
	}

	deltas := make(map[string]int, len(ability.Consumes)+len(ability.Produces))
	for item, n := range ability.Consumes {
		deltas[item] -= n
	}
	for item, n := range ability.Produces {
		deltas[item] += n
	}
	if len(deltas) > 0 {
		if err := c.AdjustItems(deltas); err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", ability.Name, err)
		}
	}

	out := Outcome{InBattle: opp != nil}
	if opp != nil {
		turns := ability.Turns()
		dmg := ability.Damage.Mul(c.AttackBuffs(), 1)
		if !dmg.IsZero() {
			r.mustQueue(oppID, Damage(dmg), turns)
		}
		if !ability.Block.IsIdentity() {
			r.mustQueue(user, Block(ability.Block), turns)
		}
		if !ability.Counter.IsZero() {
			r.mustQueue(user, Counter(ability.Counter), turns)
		}
		if ability.OpponentText != "" {
			opp.Message(fmt.Sprintf("%s %s", c.Name(), ability.OpponentText))
		} else {
			opp.Message(fmt.Sprintf("%s uses %s on you.", c.Name(), ability.Name))
		}
	}

	for _, d := range statDeltas(ability, true) {
		if d.delta == 0 {
			continue
		}
		if err := c.AdjustStat(d.stat, d.delta); err != nil {
			return out, err
		}
	}
	if ability.DestroyItem && c.Equipped() != "" {
		if err := c.SetEquipped(""); err != nil {
			return out, err
		}
		c.Message("Your equipped item is destroyed.")
	}
	if ability.SelfText != "" {
		c.Message(ability.SelfText)
	}
	if ability.Image != "" {
		c.Image(ability.Image)
	}
	r.logger.Debug("ability applied",
		zap.Stringer("user", user),
		zap.String("ability", ability.ID),
		zap.String("item", usedItem),
		zap.Bool("in_battle", out.InBattle),
	)
	return out, nil
}

type statDelta struct {
	stat  string
	delta float64
}

func statDeltas(ability *gamedata.AbilityDef, withHealth bool) []statDelta {
	out := []statDelta{
		{gamedata.StatExperience, ability.Experience},
		{gamedata.StatEnergy, ability.Energy},
	}
	if withHealth {
		out = append(out, statDelta{gamedata.StatHealth, ability.Health})
	}
	return out
}

// CanAfford checks every cost of ability against c without mutating it.
// Mobs do not pay health costs.
func CanAfford(c Combatant, ability *gamedata.AbilityDef) error {
	for _, cost := range statDeltas(ability, !c.IsMob()) {
		if cost.delta >= 0 {
			continue
		}
		have, err := c.Stat(cost.stat)
		if err != nil {
			return err
		}
		if have+cost.delta < 0 {
			return fmt.Errorf("%w %s: not enough %s (have %s, need %s)",
				ErrCannotAfford, ability.Name, cost.stat, formatAmount(have), formatAmount(-cost.delta))
		}
	}
	for _, set := range []map[string]int{ability.Requires, ability.Consumes} {
		for item, n := range set {
			if have := c.ItemQuantity(item); have < n {
				return fmt.Errorf("%w: %s needs %d %s, have %d", ErrMissingItem, ability.Name, n, item, have)
			}
		}
	}
	return nil
}

// mustQueue queues onto a registered identity, which cannot fail.
func (r *Registry) mustQueue(id Identity, e Effect, turns int) {
	if err := r.QueueEffect(id, e, turns); err != nil {
		invariant("queueing %s on %s: %v", e, id, err)
	}
}

// EatResult reports how an Eat call went.
type EatResult struct {
	Eaten  int
	Missed int
}

// Eat consumes up to count units of item, applying the item's eat ability
// once per unit. count is clamped to [1, max eat]. Eating stops early when the
// item runs out or the ability cannot be afforded; the error is returned only
// when not even one unit was eaten.
func (r *Registry) Eat(roster Roster, user Identity, item string, count int) (EatResult, error) {
	c, ok := roster.Combatant(user)
	if !ok {
		return EatResult{}, fmt.Errorf("%s: %w", user, ErrUnknownCombatant)
	}
	def, err := r.catalog.Item(item)
	if err != nil {
		return EatResult{}, err
	}
	if def.Eat == "" {
		return EatResult{}, fmt.Errorf("%s %w", def.Name, ErrInedible)
	}
	ability, err := r.catalog.Ability(def.Eat)
	if err != nil {
		return EatResult{}, err
	}
	count = min(max(count, 1), r.maxEat)

	var res EatResult
	for range count {
		if c.ItemQuantity(item) < 1 {
			if res.Eaten == 0 {
				return res, fmt.Errorf("%w: you have no %s", ErrMissingItem, def.Name)
			}
			break
		}
		out, err := r.Apply(roster, user, ability, item)
		if err != nil {
			if res.Eaten == 0 {
				return res, err
			}
			break
		}
		if err := c.AdjustItems(map[string]int{item: -1}); err != nil {
			return res, err
		}
		res.Eaten++
		if out.Missed {
			res.Missed++
		}
	}
	return res, nil
}
