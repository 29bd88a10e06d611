package repl

import "strings"

// Completer provides command-word completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the commands the CLI speaks
// natively plus the REPL controls.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"APPEND", "DECR", "DEL", "ECHO", "EXISTS", "EXPIRE",
			"GET", "INCR", "INCRBY", "INFO", "PING", "SCAN",
			"SELECT", "SET", "TTL",
			"HELP", "EXIT", "QUIT",
		},
	}
}

// Complete returns completions for the first word of line. Arguments
// after the command word are never completed.
func (c *Completer) Complete(line string) []string {
	word := strings.TrimLeft(line, " ")
	if strings.ContainsRune(word, ' ') {
		return nil
	}
	lower := word != "" && word == strings.ToLower(word)

	var suggestions []string
	for _, cmd := range c.commands {
		if !strings.HasPrefix(cmd, strings.ToUpper(word)) {
			continue
		}
		if lower {
			suggestions = append(suggestions, strings.ToLower(cmd))
		} else {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
