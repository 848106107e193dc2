package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// Gear is the inventory and equipment surface the gear commands act on.
type Gear interface {
	ItemQuantity(item string) int
	Inventory() map[string]int
	Equipped() string
	SetEquipped(item string) error
	Worn() []string
	Wear(item string) error
	Remove(item string) error
}

// itemName returns the display name of id, falling back to id itself.
func itemName(cat *gamedata.Catalog, id string) string {
	if def, err := cat.Item(id); err == nil {
		return def.Name
	}
	return id
}

// HandleEquip processes "equip <item>".
//
// Precondition: g and cat must not be nil.
// Postcondition: On success the item is equipped and a confirmation returned;
// otherwise state is unchanged and the reason is returned.
func HandleEquip(g Gear, cat *gamedata.Catalog, arg string) string {
	id := strings.TrimSpace(arg)
	if id == "" {
		return "Usage: equip <item>"
	}
	def, err := cat.Item(id)
	if err != nil {
		return fmt.Sprintf("%s: no such item", id)
	}
	if def.Ability == "" {
		return fmt.Sprintf("%s cannot be used to strike.", def.Name)
	}
	if g.ItemQuantity(id) < 1 {
		return fmt.Sprintf("You have no %s.", def.Name)
	}
	if g.Equipped() == id {
		return fmt.Sprintf("%s is already equipped.", def.Name)
	}
	if err := g.SetEquipped(id); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("You equip %s.", def.Name)
}

// HandleUnequip processes "unequip".
func HandleUnequip(g Gear, cat *gamedata.Catalog) string {
	id := g.Equipped()
	if id == "" {
		return "You have nothing equipped."
	}
	if err := g.SetEquipped(""); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("You put away %s.", itemName(cat, id))
}

// HandleWear processes "wear <item>".
//
// Postcondition: On success the item is worn; otherwise state is unchanged.
func HandleWear(g Gear, cat *gamedata.Catalog, arg string) string {
	id := strings.TrimSpace(arg)
	if id == "" {
		return "Usage: wear <item>"
	}
	if _, err := cat.Item(id); err != nil {
		return fmt.Sprintf("%s: no such item", id)
	}
	if err := g.Wear(id); err != nil {
		return fmt.Sprintf("You cannot wear that: %v", err)
	}
	return fmt.Sprintf("You wear %s.", itemName(cat, id))
}

// HandleRemove processes "remove <item>".
func HandleRemove(g Gear, cat *gamedata.Catalog, arg string) string {
	id := strings.TrimSpace(arg)
	if id == "" {
		return "Usage: remove <item>"
	}
	if err := g.Remove(id); err != nil {
		return fmt.Sprintf("You are not wearing %s.", itemName(cat, id))
	}
	return fmt.Sprintf("You take off %s.", itemName(cat, id))
}

// HandleInventory lists held items with equipped and worn markers, sorted by ID.
func HandleInventory(g Gear, cat *gamedata.Catalog) []string {
	inv := g.Inventory()
	if len(inv) == 0 {
		return []string{"You carry nothing."}
	}
	worn := make(map[string]bool)
	for _, id := range g.Worn() {
		worn[id] = true
	}
	ids := make([]string, 0, len(inv))
	for id := range inv {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := []string{"You carry:"}
	for _, id := range ids {
		line := fmt.Sprintf("  %d x %s", inv[id], itemName(cat, id))
		switch {
		case g.Equipped() == id:
			line += " (equipped)"
		case worn[id]:
			line += " (worn)"
		}
		lines = append(lines, line)
	}
	return lines
}
