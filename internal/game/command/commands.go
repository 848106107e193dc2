// Package command provides the command registry, parser, and the handlers for
// commands that only touch the invoking combatant.
package command

// Categories for organizing commands.
const (
	CategoryCombat = "combat"
	CategoryGear   = "gear"
	CategoryWorld  = "world"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to server-side handlers.
const (
	HandlerAttack    = "attack"
	HandlerUse       = "use"
	HandlerStrike    = "strike"
	HandlerPass      = "pass"
	HandlerFlee      = "flee"
	HandlerSurrender = "surrender"
	HandlerEat       = "eat"
	HandlerEquip     = "equip"
	HandlerUnequip   = "unequip"
	HandlerWear      = "wear"
	HandlerRemove    = "remove"
	HandlerInventory = "inventory"
	HandlerStatus    = "status"
	HandlerLook      = "look"
	HandlerWho       = "who"
	HandlerHelp      = "help"
	HandlerQuit      = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument shape, e.g. "eat <item> [count]".
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command.
	Category string
	// Handler names the server-side handler.
	Handler string
	// MinArgs is the number of arguments the command requires.
	MinArgs int
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "attack", Aliases: []string{"att", "kill"}, Usage: "attack <target>", Help: "Start a battle with a mob or player", Category: CategoryCombat, Handler: HandlerAttack, MinArgs: 1},
		{Name: "use", Aliases: []string{"cast"}, Usage: "use <ability>", Help: "Use one of your abilities", Category: CategoryCombat, Handler: HandlerUse, MinArgs: 1},
		{Name: "strike", Aliases: []string{"hit"}, Usage: "strike", Help: "Use the ability of your equipped item", Category: CategoryCombat, Handler: HandlerStrike},
		{Name: "pass", Aliases: []string{"p"}, Usage: "pass", Help: "Let the battle continue without acting", Category: CategoryCombat, Handler: HandlerPass},
		{Name: "flee", Aliases: []string{"run"}, Usage: "flee", Help: "Try to escape the battle", Category: CategoryCombat, Handler: HandlerFlee},
		{Name: "surrender", Aliases: []string{"yield"}, Usage: "surrender", Help: "Give up the battle", Category: CategoryCombat, Handler: HandlerSurrender},
		{Name: "eat", Aliases: nil, Usage: "eat <item> [count]", Help: "Eat one or more units of an item", Category: CategoryCombat, Handler: HandlerEat, MinArgs: 1},
		{Name: "status", Aliases: []string{"stat", "st"}, Usage: "status", Help: "Show your stats and battle state", Category: CategoryCombat, Handler: HandlerStatus},

		{Name: "equip", Aliases: []string{"eq", "wield"}, Usage: "equip <item>", Help: "Equip an item to strike with", Category: CategoryGear, Handler: HandlerEquip, MinArgs: 1},
		{Name: "unequip", Aliases: []string{"ueq"}, Usage: "unequip", Help: "Put away your equipped item", Category: CategoryGear, Handler: HandlerUnequip},
		{Name: "wear", Aliases: nil, Usage: "wear <item>", Help: "Wear an item for its attack buffs", Category: CategoryGear, Handler: HandlerWear, MinArgs: 1},
		{Name: "remove", Aliases: []string{"rm"}, Usage: "remove <item>", Help: "Take off a worn item", Category: CategoryGear, Handler: HandlerRemove, MinArgs: 1},
		{Name: "inventory", Aliases: []string{"inv", "i"}, Usage: "inventory", Help: "Show what you carry", Category: CategoryGear, Handler: HandlerInventory},

		{Name: "look", Aliases: []string{"l"}, Usage: "look", Help: "List the mobs and players around you", Category: CategoryWorld, Handler: HandlerLook},
		{Name: "who", Aliases: nil, Usage: "who", Help: "List connected players", Category: CategoryWorld, Handler: HandlerWho},

		{Name: "help", Aliases: []string{"?"}, Usage: "help", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit"}, Usage: "quit", Help: "Disconnect from the game", Category: CategorySystem, Handler: HandlerQuit},
	}
}

// IsBattleCommand reports whether the handler consumes the caller's battle turn.
func IsBattleCommand(handler string) bool {
	switch handler {
	case HandlerUse, HandlerStrike, HandlerPass, HandlerFlee, HandlerEat:
		return true
	default:
		return false
	}
}
