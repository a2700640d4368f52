package security

import (
	"path/filepath"
	"strings"
)

// DangerousCommandChecker detects dangerous commands.
type DangerousCommandChecker struct {
	dangerousCommands []string
	dangerousPatterns []string
	analyzer          *ShellCommandAnalyzer
}

// NewDangerousCommandChecker creates a new danger checker. extra names are
// added to the built-in list.
func NewDangerousCommandChecker(extra ...string) *DangerousCommandChecker {
	return &DangerousCommandChecker{
		dangerousCommands: append([]string{
			"rm", "rmdir", "dd", "mkfs", "format", "shred",
			"chmod", "chown", "chgrp", "userdel", "groupdel",
			"mkfs.", "fdisk", "parted", "wipefs",
			"kill", "killall", "pkill", "shutdown", "reboot", "halt", "poweroff",
			"mv", "truncate", "crontab", "iptables",
		}, extra...),
		dangerousPatterns: []string{
			"rm -rf /",
			"rm -rf .*",
			"chmod 777 /",
			"> /dev/sd",
			"> /etc/",
			"> /usr/",
			"> /System",
			":(){",
			"| sh",
			"| bash",
			"--force",
			"git push -f",
			"git reset --hard",
			"git clean -f",
		},
		analyzer: NewShellCommandAnalyzer(),
	}
}

// maxNesting bounds how deep sh -c, eval and find -exec payloads are
// followed.
const maxNesting = 4

// IsDangerous checks if a command line runs anything from the dangerous list
// or matches a dangerous pattern. A line that cannot be parsed is dangerous.
func (dc *DangerousCommandChecker) IsDangerous(cmdStr string) bool {
	return dc.isDangerous(cmdStr, 0)
}

func (dc *DangerousCommandChecker) isDangerous(cmdStr string, depth int) bool {
	if depth > maxNesting {
		return true
	}

	cmds, err := dc.analyzer.Commands(cmdStr)
	if err != nil {
		return true
	}
	for _, cmd := range cmds {
		if dc.runsDangerous(cmd, depth) {
			return true
		}
	}

	// Check dangerous patterns
	for _, pattern := range dc.dangerousPatterns {
		if strings.Contains(cmdStr, pattern) {
			return true
		}
	}

	return false
}

// runsDangerous checks one simple command, following the commands it hands
// its arguments to.
func (dc *DangerousCommandChecker) runsDangerous(cmd SimpleCommand, depth int) bool {
	words, privileged := dc.analyzer.Invocation(cmd)
	if privileged {
		return true
	}
	if len(words) == 0 {
		return false
	}
	if words[0] == dynamicWord {
		return true
	}

	program := filepath.Base(words[0])
	if dc.listed(program) {
		return true
	}

	switch program {
	case "sh", "bash", "zsh", "dash", "ksh":
		script, ok := inlineScript(words[1:])
		if !ok {
			return false
		}
		return script == dynamicWord || dc.isDangerous(script, depth+1)
	case "eval":
		for _, w := range words[1:] {
			if w == dynamicWord {
				return true
			}
		}
		return dc.isDangerous(strings.Join(words[1:], " "), depth+1)
	case "find":
		return dc.findIsDangerous(words[1:], depth)
	}
	return false
}

// findIsDangerous reports whether find deletes files or executes a
// dangerous command on them.
func (dc *DangerousCommandChecker) findIsDangerous(args SimpleCommand, depth int) bool {
	for i, arg := range args {
		switch arg {
		case "-delete":
			return true
		case "-exec", "-execdir", "-ok", "-okdir":
			var sub SimpleCommand
			for _, w := range args[i+1:] {
				if w == ";" || w == "+" {
					break
				}
				sub = append(sub, w)
			}
			if len(sub) == 0 {
				continue
			}
			if depth >= maxNesting || dc.runsDangerous(sub, depth+1) {
				return true
			}
		}
	}
	return false
}

func (dc *DangerousCommandChecker) listed(program string) bool {
	for _, dangerous := range dc.dangerousCommands {
		if program == dangerous || (strings.HasSuffix(dangerous, ".") && strings.HasPrefix(program, dangerous)) {
			return true
		}
	}
	return false
}

// inlineScript returns the script passed to a shell with -c.
func inlineScript(args SimpleCommand) (string, bool) {
	for i, arg := range args {
		if arg == "--" || !strings.HasPrefix(arg, "-") {
			return "", false
		}
		if !strings.HasPrefix(arg, "--") && strings.Contains(arg, "c") && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}
