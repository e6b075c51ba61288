package process

import "strings"

// LevelPrefixParser recognises a leading level marker such as "ERROR:",
// "[warn]" or "level=debug" and strips it from the message. Lines without
// a marker are logged at info.
func LevelPrefixParser(line string) (level, msg string) {
	trimmed := strings.TrimSpace(line)

	for _, lvl := range []string{"fatal", "error", "warning", "warn", "info", "debug", "trace"} {
		for _, prefix := range []string{"[" + lvl + "]", lvl + ":", "level=" + lvl + " ", lvl + " "} {
			if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
				return lvl, strings.TrimSpace(trimmed[len(prefix):])
			}
		}
	}
	return "info", line
}

// Parsers maps configuration names to log parsers.
var Parsers = map[string]LogParser{
	"":       nil,
	"plain":  nil,
	"prefix": LevelPrefixParser,
}
