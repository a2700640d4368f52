package ai

import (
	"regexp"
	"strings"
)

// Tag is the safety level an explanation starts with
type Tag int

const (
	TagCaution Tag = iota
	TagSafe
	TagDanger
)

// String returns the bracketed form used in explanation text
func (t Tag) String() string {
	switch t {
	case TagSafe:
		return "[SAFE]"
	case TagDanger:
		return "[DANGER]"
	default:
		return "[CAUTION]"
	}
}

// Explanation is a parsed explainer answer
type Explanation struct {
	Tag  Tag
	Body string
	// Code holds the contents of the first fenced block, without the fences.
	Code string
	Raw  string
}

var boldTagPattern = regexp.MustCompile(`\*\*\[(SAFE|CAUTION|DANGER)\]\*\*`)

// NormalizeTags rewrites markdown-bolded tags like **[SAFE]** to [SAFE].
func NormalizeTags(text string) string {
	return boldTagPattern.ReplaceAllString(text, "[$1]")
}

// ParseExplanation extracts the safety tag, body and fenced block.
// A missing or unrecognised tag is read as CAUTION, never SAFE.
func ParseExplanation(text string) Explanation {
	raw := NormalizeTags(strings.TrimSpace(text))
	exp := Explanation{Tag: TagCaution, Raw: raw}

	rest := raw
	switch {
	case strings.HasPrefix(rest, "[DANGER]"):
		exp.Tag = TagDanger
		rest = strings.TrimPrefix(rest, "[DANGER]")
	case strings.HasPrefix(rest, "[SAFE]"):
		exp.Tag = TagSafe
		rest = strings.TrimPrefix(rest, "[SAFE]")
	case strings.HasPrefix(rest, "[CAUTION]"):
		rest = strings.TrimPrefix(rest, "[CAUTION]")
	}

	var body []string
	var code []string
	inFence, fenceSeen := false, false
	for _, line := range strings.Split(rest, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inFence && fenceSeen {
				// only the first block is kept as code
				body = append(body, line)
				continue
			}
			inFence = !inFence
			fenceSeen = true
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}
		body = append(body, line)
	}

	exp.Body = strings.TrimSpace(strings.Join(body, "\n"))
	exp.Code = strings.Join(code, "\n")
	return exp
}
