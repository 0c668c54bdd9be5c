package repl

import "strings"

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"tree",
			"snapshot", "snapshot take", "snapshot list", "snapshot get", "snapshot delete", "snapshot prune",
			"task", "task get", "task spawn", "task exit", "task state",
			"apikey", "apikey list", "apikey create", "apikey enable", "apikey disable", "apikey delete",
			"system", "system status", "system health",
			"config", "config show", "config set", "config path",
			"connect", "disconnect",
			"help", "exit", "quit",
		},
	}
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
