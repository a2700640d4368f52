package security

import (
	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
)

// Verdict is the controller's view of a resolved command before any
// explanation is known.
type Verdict struct {
	Safe             bool
	WantsExplanation bool
	// Reason is set when the resolver's safe verdict was overridden.
	Reason string
}

// SecurityController applies the policy to resolver output.
type SecurityController struct {
	policy        *SecurityPolicy
	dangerChecker *DangerousCommandChecker
}

// NewSecurityController creates a new security controller.
func NewSecurityController(policy *SecurityPolicy) *SecurityController {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &SecurityController{
		policy:        policy,
		dangerChecker: NewDangerousCommandChecker(policy.DangerousCommands...),
	}
}

// Assess combines the resolver's verdict, the policy and the query intent.
func (sc *SecurityController) Assess(query string, result ai.CommandResult, forceExplain bool) Verdict {
	v := Verdict{
		Safe:             result.Safe,
		WantsExplanation: forceExplain || WantsExplanation(query),
	}

	if !v.Safe {
		return v
	}
	if sc.policy.CommandLevel == ConfirmAlways {
		v.Safe = false
		v.Reason = "confirmation required for every command"
		return v
	}
	if sc.dangerChecker.IsDangerous(result.Command) {
		v.Safe = false
		v.Reason = "command is in the dangerous list"
	}
	return v
}

// Start assesses the command and returns its state machine.
func (sc *SecurityController) Start(query string, result ai.CommandResult, forceExplain bool) (*Machine, Verdict) {
	v := sc.Assess(query, result, forceExplain)
	return NewMachine(v.Safe, v.WantsExplanation), v
}
