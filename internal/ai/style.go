package ai

import (
	"fmt"
	"strings"
)

// Style selects the pseudo-code dialect used in explanations
type Style int

const (
	StyleTypeScript Style = iota
	StylePython
	StyleRuby
	StyleHuman
)

var styleNames = map[Style]string{
	StyleTypeScript: "typescript",
	StylePython:     "python",
	StyleRuby:       "ruby",
	StyleHuman:      "human",
}

// String returns the canonical wire name
func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return "typescript"
}

// ParseStyle accepts canonical names and their short aliases
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "typescript", "ts":
		return StyleTypeScript, nil
	case "python", "py":
		return StylePython, nil
	case "ruby", "rb":
		return StyleRuby, nil
	case "human", "plain":
		return StyleHuman, nil
	}
	return StyleTypeScript, fmt.Errorf("unknown style %q (want typescript, python, ruby or human)", name)
}

// MarshalText implements encoding.TextMarshaler
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Style) UnmarshalText(text []byte) error {
	parsed, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// queryStyleWords are the words that select a style when they open or close a query.
var queryStyleWords = map[string]Style{
	"typescript": StyleTypeScript,
	"ts":         StyleTypeScript,
	"python":     StylePython,
	"py":         StylePython,
	"ruby":       StyleRuby,
	"human":      StyleHuman,
}

// StyleFromQuery looks for a style keyword as the first or last word of the
// query. It returns the query without that word and whether one was found.
func StyleFromQuery(query string) (string, Style, bool) {
	words := strings.Fields(query)
	if len(words) < 2 {
		return query, StyleTypeScript, false
	}

	if style, ok := queryStyleWords[strings.ToLower(words[0])]; ok {
		return strings.Join(words[1:], " "), style, true
	}
	last := len(words) - 1
	if style, ok := queryStyleWords[strings.ToLower(words[last])]; ok {
		return strings.Join(words[:last], " "), style, true
	}
	return query, StyleTypeScript, false
}
