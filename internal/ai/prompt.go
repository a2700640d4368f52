package ai

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
)

const commandSystemPrompt = `You translate a natural-language request into exactly one shell command for %s.

Rules:
1. Return ONLY valid JSON, no prose and no markdown.
2. Prefer standard POSIX tools; chain with && or | when needed.
3. Set "safe" to true only if the command is read-only and cannot modify files,
   processes, permissions, network state or system configuration.

Response format:
{"command": "<shell command>", "safe": true|false}`

const explainSystemPrompt = `You explain shell commands to a user who is about to run them.

Start with exactly one safety level in brackets:
[SAFE]    read-only, no side effects
[CAUTION] modifies files or state but is recoverable
[DANGER]  destructive, irreversible, privileged or affects the whole system

Then one short sentence on what the command does, then %s

Format:
[LEVEL] sentence
` + "```" + `
code
` + "```"

var styleInstructions = map[Style]string{
	StyleTypeScript: "a short fenced block of TypeScript-flavoured pseudo-code describing each step.",
	StylePython:     "a short fenced block of Python-flavoured pseudo-code describing each step.",
	StyleRuby:       "a short fenced block of Ruby-flavoured pseudo-code describing each step.",
	StyleHuman:      "a short fenced block listing each step in plain English, one per line.",
}

// CommandPrompt builds the resolver conversation for a query.
func CommandPrompt(query string) []Message {
	return []Message{
		{Role: "system", Content: fmt.Sprintf(commandSystemPrompt, runtime.GOOS)},
		{Role: "user", Content: query},
	}
}

// ExplainPrompt builds the explainer prompt for a command.
func ExplainPrompt(command string, style Style) (system, user string) {
	instruction, ok := styleInstructions[style]
	if !ok {
		instruction = styleInstructions[StyleTypeScript]
	}
	return fmt.Sprintf(explainSystemPrompt, instruction), "Command: " + command
}

// ParseCommandResponse decodes the resolver's JSON answer. Output that is not
// JSON is taken as a bare command and marked unsafe.
func ParseCommandResponse(response string) (CommandResult, error) {
	cleaned := cleanJSONResponse(response)

	var result CommandResult
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		result.Command = strings.TrimSpace(result.Command)
		if result.Command == "" {
			return CommandResult{}, ErrEmptyCommand
		}
		return result, nil
	}

	command := firstCommandLine(cleaned)
	if command == "" {
		return CommandResult{}, ErrEmptyCommand
	}
	return CommandResult{Command: command, Safe: false}, nil
}

// cleanJSONResponse strips markdown code fences around a model answer
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```") {
		if idx := strings.Index(response, "\n"); idx != -1 {
			response = response[idx+1:]
		} else {
			response = strings.TrimPrefix(response, "```")
		}
		response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	}

	return strings.TrimSpace(response)
}

func firstCommandLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "$ ")
		line = strings.Trim(line, "`")
		if line != "" {
			return line
		}
	}
	return ""
}
