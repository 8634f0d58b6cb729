package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meridian-sims/worldsim/cmd/worldsim/reporting"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded simulation runs",
	Long:  `List runs saved to the history database, newest first`,
	RunE:  listRuns,
}

func init() {
	runsCmd.Flags().String("db", "worldsim_history.db", "history database path")
}

func listRuns(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("history database not found at %s", dbPath)
	}

	store, err := reporting.OpenHistoryStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN ID\tSEED\tSTEPS\tNATIONS\tCREATED")
	_, _ = fmt.Fprintln(w, "------\t----\t-----\t-------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.Seed, r.Steps, r.Nations, r.CreatedAt)
	}

	return w.Flush()
}
