package command

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCommand is returned when the first word matches no command or alias.
var ErrUnknownCommand = errors.New("unknown command")

// Registry maps command names and aliases to Command definitions.
type Registry struct {
	commands map[string]*Command // canonical name → command
	aliases  map[string]string   // alias → canonical name
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		aliases:  make(map[string]string),
	}
	for i := range cmds {
		cmd := &cmds[i]
		if _, exists := r.commands[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		if _, exists := r.aliases[cmd.Name]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an existing alias", cmd.Name)
		}
		r.commands[cmd.Name] = cmd
	}
	for _, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if _, exists := r.commands[alias]; exists {
				return nil, fmt.Errorf("alias %q of %q conflicts with a command name", alias, cmd.Name)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, cmd.Name)
			}
			r.aliases[alias] = cmd.Name
		}
	}
	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	if cmd, ok := r.commands[input]; ok {
		return cmd, true
	}
	if canonical, ok := r.aliases[input]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Lookup parses line and resolves its command, checking the argument count.
//
// Postcondition: on error the returned message is suitable for the player.
func (r *Registry) Lookup(line string) (ParseResult, *Command, error) {
	pr := Parse(line)
	if pr.Command == "" {
		return pr, nil, fmt.Errorf("%w: type help for a list", ErrUnknownCommand)
	}
	cmd, ok := r.Resolve(pr.Command)
	if !ok {
		return pr, nil, fmt.Errorf("%w %q: type help for a list", ErrUnknownCommand, pr.Command)
	}
	if len(pr.Args) < cmd.MinArgs {
		return pr, cmd, fmt.Errorf("usage: %s", cmd.Usage)
	}
	return pr, cmd, nil
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []*Command {
	result := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// CommandsByCategory returns commands grouped by category.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.Commands() {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}

// HelpLines renders the help listing, one category heading followed by its
// commands, categories in alphabetical order.
func (r *Registry) HelpLines() []string {
	byCat := r.CommandsByCategory()
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var lines []string
	for _, c := range cats {
		lines = append(lines, c+":")
		for _, cmd := range byCat[c] {
			lines = append(lines, fmt.Sprintf("  %-22s %s", cmd.Usage, cmd.Help))
		}
	}
	return lines
}
