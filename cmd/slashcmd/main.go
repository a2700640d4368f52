package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
)

// exitError ends the process with a status and no message
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type rootFlags struct {
	style          string
	nonInteractive bool
	quick          bool
	printOnly      bool
	explain        bool
	local          bool
	daemon         bool
	verbose        bool
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:   "slashcmd [query...]",
	Short: "Natural language to shell commands",
	Long: `slashcmd turns a natural-language request into a shell command, explains it,
and runs it once you confirm. Safe commands run immediately; dangerous ones are
only ever copied to the clipboard.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := storage.InitConfig()
		return err
	},
	RunE: runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flags.verbose, "verbose", false, "Log at debug level")

	f := rootCmd.Flags()
	f.StringVarP(&flags.style, "style", "s", "", "Explanation style: typescript, python, ruby or human")
	f.BoolVarP(&flags.nonInteractive, "non-interactive", "n", false, "Print the command and its explanation without prompting")
	f.BoolVarP(&flags.quick, "quick", "q", false, "Skip the explanation and just print the command")
	f.BoolVar(&flags.printOnly, "print-only", false, "Print only the command (for shell integration)")
	f.BoolVarP(&flags.explain, "explain", "e", false, "Always show the explanation before running")
	f.BoolVarP(&flags.local, "local", "l", false, "Use the direct backends even when the proxy is configured")
	f.BoolVar(&flags.daemon, "daemon", false, "Run as background daemon")
	_ = f.MarkHidden("daemon")
	_ = f.MarkHidden("print-only")

	rootCmd.AddCommand(getDaemonCommand())
	rootCmd.AddCommand(getHistoryCommand())
	rootCmd.AddCommand(getConfigCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
