package gameserver

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

// DefaultExchangeLimit bounds the automatic steps run after one command.
const DefaultExchangeLimit = 100

// ErrUnknownPlayer is returned when an identity does not name a connected player.
var ErrUnknownPlayer = errors.New("unknown player")

// Response is the output of one command.
type Response struct {
	Lines  []string
	Images []string
	// Quit is set when the player asked to disconnect.
	Quit bool
}

// BattleHandler executes player commands against the world and the battle
// registry.
//
// mu serialises every command, tick and join so the registry, the world and
// all combatants are only touched by one goroutine at a time.
type BattleHandler struct {
	mu            sync.Mutex
	catalog       *gamedata.Catalog
	world         *World
	battles       *battle.Registry
	commands      *command.Registry
	brain         *MobBrain
	respawner     *Respawner
	roller        *dice.Roller
	exchangeLimit int
	now           func() time.Time
	logger        *zap.Logger
}

// NewBattleHandler creates a BattleHandler.
//
// Precondition: every pointer argument must be non-nil; exchangeLimit <= 0
// selects DefaultExchangeLimit.
// Postcondition: Returns a non-nil BattleHandler over an existing world.
func NewBattleHandler(
	catalog *gamedata.Catalog,
	world *World,
	battles *battle.Registry,
	commands *command.Registry,
	brain *MobBrain,
	respawner *Respawner,
	roller *dice.Roller,
	exchangeLimit int,
	logger *zap.Logger,
) *BattleHandler {
	if exchangeLimit <= 0 {
		exchangeLimit = DefaultExchangeLimit
	}
	return &BattleHandler{
		catalog:       catalog,
		world:         world,
		battles:       battles,
		commands:      commands,
		brain:         brain,
		respawner:     respawner,
		roller:        roller,
		exchangeLimit: exchangeLimit,
		now:           time.Now,
		logger:        logger,
	}
}

// SetClock replaces the handler's time source. Intended for tests.
func (h *BattleHandler) SetClock(now func() time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = now
}

// SpawnInitial spawns Count mobs of every template.
//
// Postcondition: Returns the number of mobs spawned, or the first spawn error.
func (h *BattleHandler) SpawnInitial(templates []*combatant.Template) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, t := range templates {
		for range t.Count {
			if _, err := h.spawnLocked(t); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// Spawn adds one mob from t to the world.
func (h *BattleHandler) Spawn(t *combatant.Template) (battle.Identity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spawnLocked(t)
}

func (h *BattleHandler) spawnLocked(t *combatant.Template) (battle.Identity, error) {
	m, err := t.Spawn(h.catalog, h.roller.Source())
	if err != nil {
		return battle.Identity{}, err
	}
	id := h.world.AddMob(m)
	h.logger.Debug("mob spawned", zap.String("template", t.ID), zap.Stringer("mob", id))
	return id, nil
}

// Tick spawns every mob whose respawn delay has elapsed.
func (h *BattleHandler) Tick(now time.Time) {
	due := h.respawner.Due(now)
	if len(due) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range due {
		if _, err := h.spawnLocked(t); err != nil {
			h.logger.Warn("respawn failed", zap.String("template", t.ID), zap.Error(err))
		}
	}
}

// Join builds a player from state and places it in the world.
//
// Postcondition: Returns the player's identity, or ErrNameTaken / a
// validation error with the world unchanged.
func (h *BattleHandler) Join(state combatant.PlayerState) (battle.Identity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, err := combatant.NewPlayer(h.catalog, state, h.roller.Source())
	if err != nil {
		return battle.Identity{}, err
	}
	id, err := h.world.AddPlayer(p)
	if err != nil {
		return battle.Identity{}, err
	}
	h.logger.Info("player joined", zap.String("name", p.Name()), zap.Stringer("player", id))
	return id, nil
}

// Leave removes id from the world, ending any battle it is in, and returns
// its final state for persistence.
func (h *BattleHandler) Leave(id battle.Identity) (combatant.PlayerState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.world.Player(id)
	if !ok {
		return combatant.PlayerState{}, fmt.Errorf("%s: %w", id, ErrUnknownPlayer)
	}
	if opp, err := h.battles.Opponent(id); err == nil {
		if c, ok := h.world.Combatant(opp); ok {
			c.Message(fmt.Sprintf("%s has left the battle.", p.Name()))
		}
		h.endLocked(id)
	}
	h.world.RemovePlayer(id)
	h.logger.Info("player left", zap.String("name", p.Name()), zap.Stringer("player", id))
	return p.State(), nil
}

// PlayerStates snapshots every connected player.
func (h *BattleHandler) PlayerStates() []combatant.PlayerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []combatant.PlayerState
	for _, id := range h.world.Players() {
		p, _ := h.world.Player(id)
		out = append(out, p.State())
	}
	return out
}

// ActiveBattles describes every battle in progress as "Initiator vs Defender".
func (h *BattleHandler) ActiveBattles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, pair := range h.battles.Participants() {
		out = append(out, h.name(pair[0])+" vs "+h.name(pair[1]))
	}
	return out
}

// Execute runs one command line for player id and returns everything the
// player has been told since their last command.
//
// Precondition: id must name a connected player.
// Postcondition: user errors are reported as lines, never as an error.
func (h *BattleHandler) Execute(id battle.Identity, line string) (Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.world.Player(id)
	if !ok {
		return Response{}, fmt.Errorf("%s: %w", id, ErrUnknownPlayer)
	}

	var resp Response
	parsed, cmd, err := h.commands.Lookup(line)
	switch {
	case err != nil:
		p.Message(err.Error())
	default:
		resp.Quit = h.dispatch(id, p, cmd, parsed)
	}

	h.discardMobOutput()
	resp.Lines, resp.Images = p.Drain()
	return resp, nil
}

// dispatch routes a resolved command. Returns true when the player quits.
func (h *BattleHandler) dispatch(id battle.Identity, p *combatant.Player, cmd *command.Command, parsed command.ParseResult) bool {
	if command.IsBattleCommand(cmd.Handler) && h.battles.InBattle(id) {
		turn, stunned := h.turnOf(id)
		if !turn || stunned {
			if stunned {
				p.Message("You are stunned.")
			} else {
				p.Message("It is not your turn.")
			}
			h.settle(id)
			return false
		}
	}

	switch cmd.Handler {
	case command.HandlerAttack:
		h.attack(id, p, parsed.RawArgs)
	case command.HandlerUse:
		h.use(id, p, parsed.Arg(0))
	case command.HandlerStrike:
		h.strike(id, p)
	case command.HandlerPass:
		h.pass(id, p)
	case command.HandlerFlee:
		h.flee(id, p)
	case command.HandlerSurrender:
		h.surrender(id, p)
	case command.HandlerEat:
		h.eat(id, p, parsed)
	case command.HandlerEquip:
		p.Message(command.HandleEquip(p, h.catalog, parsed.Arg(0)))
	case command.HandlerUnequip:
		p.Message(command.HandleUnequip(p, h.catalog))
	case command.HandlerWear:
		p.Message(command.HandleWear(p, h.catalog, parsed.Arg(0)))
	case command.HandlerRemove:
		p.Message(command.HandleRemove(p, h.catalog, parsed.Arg(0)))
	case command.HandlerInventory:
		messageAll(p, command.HandleInventory(p, h.catalog))
	case command.HandlerStatus:
		h.status(id, p)
	case command.HandlerLook:
		messageAll(p, command.HandleLook(p.Name(), h.world.MobNames(), h.world.PlayerNames()))
	case command.HandlerWho:
		p.Message("Players online: " + strings.Join(h.world.PlayerNames(), ", "))
	case command.HandlerHelp:
		messageAll(p, h.commands.HelpLines())
	case command.HandlerQuit:
		p.Message("Goodbye.")
		return true
	default:
		p.Message(fmt.Sprintf("%s is not implemented.", cmd.Name))
	}
	return false
}

func messageAll(c battle.Combatant, lines []string) {
	for _, l := range lines {
		c.Message(l)
	}
}

func (h *BattleHandler) attack(id battle.Identity, p *combatant.Player, target string) {
	if opp, err := h.battles.Opponent(id); err == nil {
		p.Message(fmt.Sprintf("You are already fighting %s.", h.name(opp)))
		return
	}
	target = strings.TrimSpace(target)
	oppID, ok := h.findTarget(id, target)
	if !ok {
		return
	}
	if _, err := h.battles.Start(h.world, id, oppID); err != nil {
		p.Message(err.Error())
		return
	}
	h.settle(id)
}

// findTarget resolves target to a mob or player that is free to fight,
// messaging p when none is.
func (h *BattleHandler) findTarget(id battle.Identity, target string) (battle.Identity, bool) {
	p, _ := h.world.Player(id)
	mobs := h.world.FindMobs(target)
	for _, m := range mobs {
		if !h.battles.InBattle(m) {
			return m, true
		}
	}
	if len(mobs) > 0 {
		p.Message(fmt.Sprintf("Every %s here is busy fighting.", target))
		return battle.Identity{}, false
	}
	other, ok := h.world.FindPlayer(target)
	switch {
	case !ok:
		p.Message(fmt.Sprintf("You don't see %q here.", target))
		return battle.Identity{}, false
	case other == id:
		p.Message("You cannot fight yourself.")
		return battle.Identity{}, false
	case h.battles.InBattle(other):
		p.Message(fmt.Sprintf("%s is busy fighting.", h.name(other)))
		return battle.Identity{}, false
	}
	return other, true
}

func (h *BattleHandler) use(id battle.Identity, p *combatant.Player, abilityID string) {
	if !slices.Contains(p.Abilities(), abilityID) {
		p.Message(fmt.Sprintf("You don't know %q.", abilityID))
		return
	}
	ab, err := h.catalog.Ability(abilityID)
	if err != nil {
		p.Message(err.Error())
		return
	}
	h.act(id, p, ab, "")
}

func (h *BattleHandler) strike(id battle.Identity, p *combatant.Player) {
	item := p.Equipped()
	if item == "" {
		p.Message("You have nothing equipped.")
		return
	}
	def, err := h.catalog.Item(item)
	if err != nil || def.Ability == "" {
		p.Message("Your equipped item cannot strike.")
		return
	}
	ab, err := h.catalog.Ability(def.Ability)
	if err != nil {
		p.Message(err.Error())
		return
	}
	h.act(id, p, ab, item)
}

// act applies ab for a player and, inside a battle, passes the turn on.
// An unaffordable ability costs nothing, not even the turn.
func (h *BattleHandler) act(id battle.Identity, p *combatant.Player, ab *gamedata.AbilityDef, item string) {
	if _, err := h.battles.Apply(h.world, id, ab, item); err != nil {
		p.Message(err.Error())
		return
	}
	h.afterAction(id)
}

func (h *BattleHandler) eat(id battle.Identity, p *combatant.Player, parsed command.ParseResult) {
	n, err := parsed.Count(1, 1)
	if err != nil {
		p.Message(err.Error())
		return
	}
	item := parsed.Arg(0)
	res, err := h.battles.Eat(h.world, id, item, n)
	if err != nil {
		p.Message(err.Error())
		return
	}
	def, _ := h.catalog.Item(item)
	p.Message(fmt.Sprintf("You eat %d %s.", res.Eaten, def.Name))
	h.afterAction(id)
}

func (h *BattleHandler) pass(id battle.Identity, p *combatant.Player) {
	if !h.battles.InBattle(id) {
		p.Message("You are not in a battle.")
		return
	}
	p.Message("You pass.")
	h.afterAction(id)
}

// flee succeeds with probability speed / (speed + opponent speed); a failed
// attempt costs the turn.
func (h *BattleHandler) flee(id battle.Identity, p *combatant.Player) {
	opp, err := h.battles.Opponent(id)
	if err != nil {
		p.Message("You are not in a battle.")
		return
	}
	c, _ := h.world.Combatant(opp)
	mine, _ := p.Stat(gamedata.StatSpeed)
	theirs, _ := c.Stat(gamedata.StatSpeed)
	mine, theirs = max(mine, 0), max(theirs, 0)
	chance := 0.5
	if mine+theirs > 0 {
		chance = mine / (mine + theirs)
	}
	if h.roller.Chance("flee", chance) {
		p.Message(fmt.Sprintf("You flee from %s.", c.Name()))
		c.Message(fmt.Sprintf("%s flees.", p.Name()))
		h.endLocked(id)
		return
	}
	p.Message("You fail to escape.")
	c.Message(fmt.Sprintf("%s tries to flee but fails.", p.Name()))
	h.afterAction(id)
}

func (h *BattleHandler) surrender(id battle.Identity, p *combatant.Player) {
	opp, err := h.battles.Opponent(id)
	if err != nil {
		p.Message("You are not in a battle.")
		return
	}
	c, _ := h.world.Combatant(opp)
	p.Message(fmt.Sprintf("You surrender to %s.", c.Name()))
	c.Message(fmt.Sprintf("%s surrenders.", p.Name()))
	h.endLocked(id)
}

func (h *BattleHandler) status(id battle.Identity, p *combatant.Player) {
	snap, err := h.battles.Snapshot(id)
	if err != nil {
		messageAll(p, command.HandleStatus(p, h.catalog, nil, ""))
		return
	}
	messageAll(p, command.HandleStatus(p, h.catalog, &snap, h.name(snap.Records[1].ID)))
}

// turnOf reports whether id holds the turn in its battle and whether id is
// stunned.
func (h *BattleHandler) turnOf(id battle.Identity) (turn, stunned bool) {
	snap, err := h.battles.Snapshot(id)
	if err != nil {
		return false, false
	}
	return snap.Holder == id, snap.Records[0].Stunned
}

// afterAction finishes the caller's action: checks for defeat, advances the
// scheduler one step and lets the battle run until a player must act.
func (h *BattleHandler) afterAction(id battle.Identity) {
	opp, err := h.battles.Opponent(id)
	if err != nil {
		return
	}
	if h.defeated(id, opp) {
		return
	}
	if h.advance(id) {
		return
	}
	h.settle(id)
}

// advance runs one action step on id's battle and, when the turn changed,
// the resolution step that follows it. The initiator is always passed first
// so ties keep going to the defender. Returns true when the battle ended.
func (h *BattleHandler) advance(id battle.Identity) bool {
	snap, err := h.battles.Snapshot(id)
	if err != nil {
		return true
	}
	a, b := snap.Initiator, snap.Records[1].ID
	if b == a {
		b = snap.Records[0].ID
	}
	if err := h.battles.Advance(h.world, a, b); err != nil {
		h.logger.Error("advancing battle", zap.Stringer("a", a), zap.Stringer("b", b), zap.Error(err))
		h.endLocked(a)
		return true
	}
	if resolving, _ := h.battles.Resolving(a); resolving {
		if err := h.battles.Advance(h.world, a, b); err != nil {
			h.logger.Error("resolving battle", zap.Stringer("a", a), zap.Stringer("b", b), zap.Error(err))
			h.endLocked(a)
			return true
		}
	} else if err := h.stunnedWaits(a); err != nil {
		h.logger.Error("resolving stunned combatant", zap.Stringer("a", a), zap.Stringer("b", b), zap.Error(err))
		h.endLocked(a)
		return true
	}
	return h.defeated(a, b)
}

// stunnedWaits runs a resolution pass on the side waiting for the turn when
// it is stunned. A stunned waiting side accrues no speed, so without its own
// pass the turn would never change and its stun would never age.
func (h *BattleHandler) stunnedWaits(id battle.Identity) error {
	snap, err := h.battles.Snapshot(id)
	if err != nil {
		return err
	}
	waiting := snap.Records[0]
	if waiting.ID == snap.Holder {
		waiting = snap.Records[1]
	}
	if !waiting.Stunned {
		return nil
	}
	return h.battles.Resolve(h.world, waiting.ID)
}

// settle runs automatic steps in id's battle until a player who is not
// stunned holds the turn, the battle ends, or the exchange limit is reached.
// Stunned turn holders pass; mobs act through the MobBrain.
func (h *BattleHandler) settle(id battle.Identity) {
	for range h.exchangeLimit {
		opp, err := h.battles.Opponent(id)
		if err != nil {
			return
		}
		snap, err := h.battles.Snapshot(id)
		if err != nil {
			return
		}
		holder, waiting := snap.Records[0], snap.Records[1]
		if snap.Holder != holder.ID {
			holder, waiting = waiting, holder
		}
		if holder.ID.Kind == battle.KindPlayer && !holder.Stunned {
			return
		}
		if holder.ID.Kind == battle.KindMob && !holder.Stunned {
			h.mobAct(holder.ID, waiting.ID, waiting.Stunned)
			if h.defeated(id, opp) {
				return
			}
		}
		if h.advance(id) {
			return
		}
	}
	h.logger.Warn("exchange limit reached", zap.Stringer("player", id), zap.Int("limit", h.exchangeLimit))
}

// mobAct lets mob take its turn against opp.
func (h *BattleHandler) mobAct(mobID, oppID battle.Identity, oppStunned bool) {
	m, ok := h.world.Mob(mobID)
	if !ok {
		return
	}
	opp, ok := h.world.Combatant(oppID)
	if !ok {
		return
	}
	ab := h.brain.Choose(m, false, opp, oppStunned)
	if ab == nil {
		opp.Message(fmt.Sprintf("%s waits.", m.Name()))
		return
	}
	if _, err := h.battles.Apply(h.world, mobID, ab, ""); err != nil {
		h.logger.Debug("mob action failed", zap.Stringer("mob", mobID), zap.String("ability", ab.ID), zap.Error(err))
	}
}

// defeated ends the battle between a and b when either side's health is at
// or below zero, rewarding the winner. Returns true when the battle ended.
func (h *BattleHandler) defeated(a, b battle.Identity) bool {
	ca, okA := h.world.Combatant(a)
	cb, okB := h.world.Combatant(b)
	if !okA || !okB {
		return false
	}
	downA, downB := down(ca), down(cb)
	if !downA && !downB {
		return false
	}
	handle, _ := h.battles.HandleOf(a)
	h.logger.Info("battle decided",
		append(observability.BattleFields(uint64(handle), a, b),
			zap.Bool("a_defeated", downA),
			zap.Bool("b_defeated", downB),
		)...,
	)
	h.endLocked(a)
	if downA {
		h.defeat(a, ca, b, cb, !downB)
	}
	if downB {
		h.defeat(b, cb, a, ca, !downA)
	}
	return true
}

func down(c battle.Combatant) bool {
	hp, err := c.Stat(gamedata.StatHealth)
	return err == nil && hp <= 0
}

// defeat settles loser's defeat. A defeated mob is removed, rewards the
// winning player when won is set and is scheduled to respawn; a defeated
// player is revived at 1 health.
func (h *BattleHandler) defeat(loserID battle.Identity, loser battle.Combatant, winnerID battle.Identity, winner battle.Combatant, won bool) {
	if won {
		winner.Message(fmt.Sprintf("You defeat %s.", loser.Name()))
	}
	switch loserID.Kind {
	case battle.KindMob:
		m, _ := h.world.Mob(loserID)
		if won && winnerID.Kind == battle.KindPlayer {
			h.reward(winner, m)
		}
		h.world.RemoveMob(loserID)
		h.respawner.Schedule(m.TemplateID, h.now(), m.RespawnDelay)
	case battle.KindPlayer:
		loser.Message(fmt.Sprintf("You have been defeated by %s.", winner.Name()))
		p, _ := h.world.Player(loserID)
		if err := p.SetStat(gamedata.StatHealth, 1); err != nil {
			h.logger.Error("reviving player", zap.Stringer("player", loserID), zap.Error(err))
		}
		p.Message("You wake up, battered but alive.")
	}
}

// reward grants winner the experience and loot of m.
func (h *BattleHandler) reward(winner battle.Combatant, m *combatant.Mob) {
	if m.XPReward.Raw != "" {
		res, err := h.roller.RollExpr(m.XPReward.Raw)
		if err == nil && res.Total() > 0 {
			if err := winner.AdjustStat(gamedata.StatExperience, float64(res.Total())); err == nil {
				winner.Message(fmt.Sprintf("You gain %d experience.", res.Total()))
			}
		}
	}
	if len(m.Loot) == 0 {
		return
	}
	if err := winner.AdjustItems(m.Loot); err != nil {
		h.logger.Warn("granting loot", zap.String("mob", m.TemplateID), zap.Error(err))
		return
	}
	ids := make([]string, 0, len(m.Loot))
	for id := range m.Loot {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := id
		if def, err := h.catalog.Item(id); err == nil {
			name = def.Name
		}
		winner.Message(fmt.Sprintf("You loot %d %s.", m.Loot[id], name))
	}
}

// endLocked ends id's battle, if any.
func (h *BattleHandler) endLocked(id battle.Identity) {
	if !h.battles.InBattle(id) {
		return
	}
	if err := h.battles.End(id); err != nil {
		h.logger.Error("ending battle", zap.Stringer("id", id), zap.Error(err))
	}
}

func (h *BattleHandler) name(id battle.Identity) string {
	if c, ok := h.world.Combatant(id); ok {
		return c.Name()
	}
	return id.String()
}

// discardMobOutput drops text and images addressed to mobs.
func (h *BattleHandler) discardMobOutput() {
	for _, id := range h.world.Mobs() {
		m, _ := h.world.Mob(id)
		m.Drain()
	}
}
