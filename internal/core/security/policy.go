package security

// SecurityPolicy defines the security configuration.
type SecurityPolicy struct {
	// CommandLevel determines when commands require confirmation.
	// "always" - every command waits for an explanation and a keypress
	// "dangerous" - commands judged safe run without confirmation
	CommandLevel ConfirmLevel `mapstructure:"command_level" yaml:"command_level"`

	// DangerousCommands extends the built-in list of command names that are
	// never auto-executed.
	DangerousCommands []string `mapstructure:"dangerous_commands" yaml:"dangerous_commands"`
}

// ConfirmLevel represents the command confirmation level.
type ConfirmLevel string

const (
	ConfirmAlways    ConfirmLevel = "always"
	ConfirmDangerous ConfirmLevel = "dangerous"
)

// DefaultPolicy returns the default security policy (balanced mode).
func DefaultPolicy() *SecurityPolicy {
	return &SecurityPolicy{
		CommandLevel:      ConfirmDangerous,
		DangerousCommands: []string{},
	}
}
