package battle

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// Resolve applies the effects queued on id, then ages them.
func (r *Registry) Resolve(roster Roster, id Identity) error {
	_, s, err := r.session(id)
	if err != nil {
		return err
	}
	return r.resolve(roster, s, id)
}

// resolve runs one resolution pass on id:
//
//  1. Damage effects accumulate into a net damage map over every damage type.
//  2. Counter effects reflect their share of the pre-block net damage onto the
//     opponent as a one-turn Damage effect.
//  3. Block effects scale the net damage.
//  4. The total is subtracted from health.
//  5. The stun flag is refreshed from the queued Stun effects.
//  6. Every effect is aged by one turn.
func (r *Registry) resolve(roster Roster, s *Session, id Identity) error {
	oppID := s.other(id)
	c, opp, err := r.pair(roster, id, oppID)
	if err != nil {
		return err
	}
	rec := s.record(id)

	net := r.catalog.Fill(nil, 0)
	for _, q := range rec.Effects {
		if q.Effect.Kind == EffectDamage {
			for _, t := range r.catalog.DamageTypes() {
				net[t] += q.Effect.Value(t)
			}
		}
	}

	for _, q := range rec.Effects {
		if q.Effect.Kind != EffectCounter {
			continue
		}
		reflected := make(gamedata.DamageMap, len(net))
		for _, t := range r.catalog.DamageTypes() {
			reflected[t] = q.Effect.Value(t) * net[t]
		}
		if reflected.IsZero() {
			continue
		}
		orec := s.record(oppID)
		orec.Effects = append(orec.Effects, QueuedEffect{Effect: Damage(reflected), Turns: 1})
		c.Message(fmt.Sprintf("You counter %s.", opp.Name()))
		opp.Message(fmt.Sprintf("%s counters you.", c.Name()))
	}

	for _, q := range rec.Effects {
		if q.Effect.Kind == EffectBlock {
			for _, t := range r.catalog.DamageTypes() {
				net[t] *= q.Effect.Value(t)
			}
		}
	}

	var total float64
	for _, t := range r.catalog.DamageTypes() {
		if net[t] != 0 {
			c.Message(fmt.Sprintf("You take %s %s damage.", formatAmount(net[t]), t))
			total += net[t]
		}
	}
	if total != 0 {
		c.Message(fmt.Sprintf("You take %s damage in total.", formatAmount(total)))
		opp.Message(fmt.Sprintf("%s takes %s damage.", c.Name(), formatAmount(total)))
		if err := c.AdjustStat(gamedata.StatHealth, -total); err != nil {
			return err
		}
	}

	stunned := rec.hasStun()
	if stunned != rec.Stunned {
		if stunned {
			c.Message("You are stunned.")
			opp.Message(fmt.Sprintf("%s is stunned.", c.Name()))
		} else {
			c.Message("You are no longer stunned.")
			opp.Message(fmt.Sprintf("%s is no longer stunned.", c.Name()))
		}
	}
	rec.Stunned = stunned

	rec.age(func(Effect) bool { return true })
	r.logger.Debug("effects resolved",
		zap.Stringer("target", id),
		zap.Float64("damage", total),
		zap.Bool("stunned", stunned),
		zap.Int("remaining", len(rec.Effects)),
	)
	return nil
}

// formatAmount renders whole numbers without a fractional part.
func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
