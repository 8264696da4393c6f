package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// DumpTarget is the parsed argument of /add_dump: either a numeric chat ID
// or a channel username still to be resolved.
type DumpTarget struct {
	ChatID   int64
	Username string
}

// ParseDumpTarget parses the /add_dump argument. Accepted forms:
// a negative channel ID ("-1001234567890"), or a username with or without
// a leading @.
func ParseDumpTarget(args string) (DumpTarget, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return DumpTarget{}, fmt.Errorf("channel ID or username is required")
	}
	s = strings.Fields(s)[0]

	if strings.HasPrefix(s, "-") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return DumpTarget{}, fmt.Errorf("invalid channel ID %q", s)
		}
		return DumpTarget{ChatID: id}, nil
	}

	return DumpTarget{Username: strings.TrimPrefix(s, "@")}, nil
}

// SplitFilenames splits a text message into one filename per non-empty
// trimmed line.
func SplitFilenames(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}
