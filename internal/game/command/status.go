package command

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// StatReader exposes a combatant's current and maximum stats.
type StatReader interface {
	Name() string
	Stat(name string) (float64, error)
	Max(name string) (float64, bool)
}

// HandleStatus renders the caller's stats and, when snap is non-nil, the
// state of the caller's battle. The first record of snap must be the caller's.
func HandleStatus(c StatReader, cat *gamedata.Catalog, snap *battle.Snapshot, opponent string) []string {
	lines := []string{c.Name() + ":"}
	for _, name := range cat.Stats() {
		v, err := c.Stat(name)
		if err != nil {
			continue
		}
		if m, ok := c.Max(name); ok {
			lines = append(lines, fmt.Sprintf("  %-10s %g/%g", name, v, m))
		} else {
			lines = append(lines, fmt.Sprintf("  %-10s %g", name, v))
		}
	}
	if snap == nil {
		return append(lines, "You are not in a battle.")
	}
	self := snap.Records[0]
	lines = append(lines, fmt.Sprintf("Fighting %s (battle %d).", opponent, snap.Handle))
	if snap.Holder == self.ID {
		lines = append(lines, "It is your turn.")
	} else {
		lines = append(lines, fmt.Sprintf("It is %s's turn.", opponent))
	}
	if self.Stunned {
		lines = append(lines, "You are stunned.")
	}
	for _, q := range self.Effects {
		lines = append(lines, fmt.Sprintf("  %s (%d turns)", q.Effect, q.Turns))
	}
	return lines
}

// joinNames renders names as "a, b and c".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// HandleLook lists the visible mobs and players, excluding self.
func HandleLook(self string, mobs, players []string) []string {
	var lines []string
	if len(mobs) == 0 {
		lines = append(lines, "There are no mobs here.")
	} else {
		lines = append(lines, "You see "+joinNames(mobs)+".")
	}
	var others []string
	for _, p := range players {
		if p != self {
			others = append(others, p)
		}
	}
	if len(others) > 0 {
		lines = append(lines, "Also here: "+joinNames(others)+".")
	}
	return lines
}
