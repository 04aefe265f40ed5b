package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/scenario.report/internal/report"
	"github.com/banshee-data/scenario.report/internal/storage/sqlite"
)

type runsOptions struct {
	dbPath string
	limit  int
}

func newRunsCmd() *cobra.Command {
	o := &runsOptions{}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List analysis runs stored with analyze --db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRunStore(func(store *sqlite.RunStore) error {
				runs, err := store.List(o.limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(w, "No runs stored.")
					return nil
				}
				for _, r := range runs {
					status := "completed"
					if r.Aborted {
						status = "stopped by " + r.AbortedBy
					}
					fmt.Fprintf(w, "%s  %s  %-30s %d/%d triggered  %s  [%s]\n",
						r.RunID,
						time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339),
						r.Scenario, r.Triggered, r.Violations, status,
						strings.Join(r.Oracles, ","))
				}
				return nil
			})
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&o.dbPath, "db", "", "SQLite database written by analyze --db")
	_ = cmd.MarkPersistentFlagRequired("db")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 20, "Show at most this many runs (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the stored violations of one run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withRunStore(func(store *sqlite.RunStore) error {
				if _, err := store.Get(args[0]); err != nil {
					return err
				}
				vs, err := store.Violations(args[0])
				if err != nil {
					return err
				}
				data, err := report.EncodeJSON(vs)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	})
	return cmd
}

func (o *runsOptions) withRunStore(fn func(*sqlite.RunStore) error) error {
	if _, err := os.Stat(o.dbPath); err != nil {
		return fmt.Errorf("run database: %w", err)
	}
	db, err := sqlite.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(sqlite.NewRunStore(db.DB))
}
