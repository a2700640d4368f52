package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/core/security"
)

const msgLineChoice = "[Enter] accept  [n] cancel\n> "

// runLineMode is the session without raw input: everything is printed in
// order and the decision is read as a line.
func (s *Session) runLineMode(ctx context.Context, job Job) (Outcome, error) {
	output := io.Writer(s.term)

	fmt.Fprintln(output, msgGenerating)
	result, err := s.awaitCommand(ctx, job.Command, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(output, msgCancelled)
			return Outcome{State: security.StateCancelled}, nil
		}
		return Outcome{}, err
	}

	machine, verdict := s.controller.Start(job.Query, result, job.ForceExplain)
	out := Outcome{Command: result.Command, Verdict: verdict}

	if machine.AutoExecute() == security.ActionExecute {
		fmt.Fprintln(output, result.Command)
		out.State = machine.State()
		return out, nil
	}

	fmt.Fprintf(output, "\n$ %s\n\n", result.Command)

	if ch := s.explanationSource(job, result.Command); ch == nil {
		machine.ExplanationFailed()
	} else {
		fmt.Fprintln(output, msgLoading)
		select {
		case r := <-ch:
			if r.Err != nil {
				s.logger.Warn("explanation failed", zap.Error(r.Err))
				machine.ExplanationFailed()
				break
			}
			exp := ai.ParseExplanation(r.Value)
			out.Explanation = &exp
			machine.Explained(exp.Tag)
			for _, line := range FormatExplanation(exp.Raw, s.opts.Style) {
				fmt.Fprintln(output, line)
			}
			fmt.Fprintln(output)
		case <-ctx.Done():
			machine.Press(security.InputCancel)
		}
	}

	if !machine.Done() {
		if err := s.confirmLine(machine, &out, output); err != nil {
			return out, err
		}
	}

	out.State = machine.State()
	return out, nil
}

// confirmLine asks for the decision on a line of input. An empty line is
// Enter; n, no, q or end of input cancels.
func (s *Session) confirmLine(m *security.Machine, out *Outcome, output io.Writer) error {
	if m.State() == security.StateDangerConfirm {
		fmt.Fprintln(output, strings.TrimSpace(msgDanger))
	} else {
		fmt.Fprintln(output, strings.TrimSpace(msgConfirm))
	}
	fmt.Fprint(output, msgLineChoice)

	scanner := bufio.NewScanner(s.input)
	for !m.Done() && scanner.Scan() {
		choice := strings.ToLower(strings.TrimSpace(scanner.Text()))

		switch choice {
		case "":
			if m.Press(security.InputEnter) == security.ActionCopy {
				if err := s.clipboard(out.Command); err != nil {
					s.logger.Warn("failed to copy command", zap.Error(err))
					fmt.Fprintf(output, "%s Failed to copy to clipboard: %v\n", msgCancelled, err)
					return nil
				}
				out.Copied = true
				fmt.Fprintln(output, msgCopied)
			}
		case "n", "no", "q":
			m.Press(security.InputCancel)
			fmt.Fprintln(output, msgCancelled)
		default:
			fmt.Fprint(output, "Press Enter to accept or n to cancel: ")
		}
	}

	if err := scanner.Err(); err != nil {
		m.Press(security.InputCancel)
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !m.Done() {
		m.Press(security.InputCancel)
		fmt.Fprintln(output, msgCancelled)
	}
	return nil
}
