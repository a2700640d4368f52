package security

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// dynamicWord stands in for a word whose value is only known at run time,
// such as $VAR or $(cmd).
const dynamicWord = "\x00"

// SimpleCommand is the words of one command invocation.
type SimpleCommand []string

// ShellCommandAnalyzer parses a shell command line and reports every simple
// command it would run, so each can be checked on its own.
type ShellCommandAnalyzer struct{}

// NewShellCommandAnalyzer creates a new shell analyzer.
func NewShellCommandAnalyzer() *ShellCommandAnalyzer {
	return &ShellCommandAnalyzer{}
}

// Commands returns every simple command in cmdStr, including those behind
// &, inside subshells and inside command substitutions.
func (sa *ShellCommandAnalyzer) Commands(cmdStr string) ([]SimpleCommand, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(cmdStr), "")
	if err != nil {
		return nil, err
	}

	var cmds []SimpleCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		words := make(SimpleCommand, len(call.Args))
		for i, w := range call.Args {
			words[i] = literal(w)
		}
		cmds = append(cmds, words)
		return true
	})
	return cmds, nil
}

// Invocation strips privilege wrappers, their flags and environment
// assignments from cmd. It returns the remaining words, program first, and
// whether a wrapper escalated privileges.
func (sa *ShellCommandAnalyzer) Invocation(cmd SimpleCommand) (SimpleCommand, bool) {
	privileged := false
	words := cmd
	for len(words) > 0 {
		w := words[0]
		switch {
		case w == "sudo" || w == "doas":
			privileged = true
			words = words[1:]
		case w == "env" || w == "nohup" || w == "time" || w == "command" || w == "xargs" || w == "exec" || w == "nice":
			words = words[1:]
		case strings.HasPrefix(w, "-") && len(words) > 1:
			// flags of the wrapper above
			words = words[1:]
		case strings.Contains(w, "=") && !strings.HasPrefix(w, "="):
			words = words[1:]
		default:
			return words, privileged || w == "su"
		}
	}
	return nil, privileged
}

// Program returns the program cmd runs, or "" when it runs none.
func (sa *ShellCommandAnalyzer) Program(cmd SimpleCommand) string {
	words, _ := sa.Invocation(cmd)
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// UsesPrivilege reports whether any command in cmdStr escalates privileges.
func (sa *ShellCommandAnalyzer) UsesPrivilege(cmdStr string) bool {
	cmds, err := sa.Commands(cmdStr)
	if err != nil {
		return false
	}
	for _, cmd := range cmds {
		if _, privileged := sa.Invocation(cmd); privileged {
			return true
		}
	}
	return false
}

// literal returns the value of w when it has no expansions, and dynamicWord
// otherwise.
func literal(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(strings.ReplaceAll(p.Value, `\`, ""))
		case *syntax.SglQuoted:
			if p.Dollar {
				return dynamicWord
			}
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return dynamicWord
				}
				sb.WriteString(lit.Value)
			}
		default:
			return dynamicWord
		}
	}
	return sb.String()
}
