package gameserver

import (
	"slices"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// HookChooseAbility is the Lua global a mob script defines to pick its
// action. It receives (self, opponent) tables and returns an ability ID,
// "pass", or nil to defer to the default choice.
const HookChooseAbility = "choose_ability"

// passChoice is the script return value that skips the mob's turn.
const passChoice = "pass"

// MobBrain picks the ability a mob uses on its turn.
type MobBrain struct {
	catalog *gamedata.Catalog
	scripts *scripting.Manager
	logger  *zap.Logger
}

// NewMobBrain creates a MobBrain.
//
// Precondition: catalog and logger must be non-nil; scripts may be nil, in
// which case every mob uses the default choice.
func NewMobBrain(catalog *gamedata.Catalog, scripts *scripting.Manager, logger *zap.Logger) *MobBrain {
	return &MobBrain{catalog: catalog, scripts: scripts, logger: logger}
}

// Choose returns the ability mob should use against opp, or nil to pass.
//
// The mob's script is consulted first. A script answer naming an ability the
// mob does not know, or cannot afford, falls back to a uniformly random pick
// among the affordable abilities the mob knows.
//
// Postcondition: a non-nil result is affordable by mob.
func (b *MobBrain) Choose(mob *combatant.Mob, mobStunned bool, opp battle.Combatant, oppStunned bool) *gamedata.AbilityDef {
	if id, ok := b.scripted(mob, mobStunned, opp, oppStunned); ok {
		if id == passChoice {
			return nil
		}
		if ab := b.usable(mob, id); ab != nil {
			return ab
		}
		b.logger.Debug("script chose an unusable ability",
			zap.String("mob", mob.Name()),
			zap.String("ability", id),
		)
	}
	var candidates []*gamedata.AbilityDef
	for _, id := range mob.Abilities() {
		if ab := b.usable(mob, id); ab != nil {
			candidates = append(candidates, ab)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[mob.Rand().Intn(len(candidates))]
}

// usable returns id's definition when mob knows it and can pay for it.
func (b *MobBrain) usable(mob *combatant.Mob, id string) *gamedata.AbilityDef {
	if !slices.Contains(mob.Abilities(), id) {
		return nil
	}
	ab, err := b.catalog.Ability(id)
	if err != nil {
		return nil
	}
	if battle.CanAfford(mob, ab) != nil {
		return nil
	}
	return ab
}

func (b *MobBrain) scripted(mob *combatant.Mob, mobStunned bool, opp battle.Combatant, oppStunned bool) (string, bool) {
	if b.scripts == nil || mob.Script == "" {
		return "", false
	}
	ret, err := b.scripts.CallHookWith(mob.Script, HookChooseAbility, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{
			scripting.CombatantTable(L, info(mob, mobStunned)),
			scripting.CombatantTable(L, info(opp, oppStunned)),
		}
	})
	if err != nil {
		return "", false
	}
	s, ok := ret.(lua.LString)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

type abilityLister interface {
	Abilities() []string
	Max(name string) (float64, bool)
}

// info snapshots c for a Lua hook.
func info(c battle.Combatant, stunned bool) scripting.CombatantInfo {
	out := scripting.CombatantInfo{Name: c.Name(), Mob: c.IsMob(), Stunned: stunned}
	out.Health, _ = c.Stat(gamedata.StatHealth)
	out.Energy, _ = c.Stat(gamedata.StatEnergy)
	if l, ok := c.(abilityLister); ok {
		out.Abilities = l.Abilities()
		out.MaxHealth, _ = l.Max(gamedata.StatHealth)
	}
	return out
}
