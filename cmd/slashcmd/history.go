package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/tui"
)

// getHistoryCommand returns the history command
func getHistoryCommand() *cobra.Command {
	var limit int
	var plain bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse previous queries",
		Long: `Browse previous queries and the commands they produced.

Keys: j/k move, gg/G jump, enter shows details, c copies the command,
d deletes the entry, q quits. Use --plain to print a list instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := storage.GetConfig()
			path, err := historyPath(cfg)
			if err != nil {
				return err
			}

			h, err := storage.OpenHistory(path, storage.HistoryOptions{})
			if err != nil {
				return err
			}
			defer h.Close()

			entries, err := h.List(limit)
			if err != nil {
				return err
			}

			if plain || !outIsTerminal(cmd) {
				return printHistory(cmd.OutOrStdout(), entries)
			}
			return tui.Run(entries, tui.Options{Delete: h.Delete})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries (0 for all)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print entries instead of opening the browser")
	return cmd
}

func outIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTerminal(f)
}

// printHistory writes one tab-aligned row per entry, newest first
func printHistory(w io.Writer, entries []storage.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history yet")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOUTCOME\tEXIT\tCOMMAND")
	for _, e := range entries {
		exit := "-"
		if e.Outcome == storage.OutcomeExecuted {
			exit = fmt.Sprint(e.ExitCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Time.Format("2006-01-02 15:04"), e.Outcome, exit, e.Command)
	}
	return tw.Flush()
}
