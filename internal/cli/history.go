package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/lrnalaunch/internal/config"
	"github.com/me/lrnalaunch/internal/store"
)

func openStore(ctx context.Context, dbPath string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open launch history: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate launch history: %w", err)
	}
	return st, nil
}

func newHistoryCmd(cfg config.LaunchConfig) *cobra.Command {
	var (
		dbPath string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded launches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			st, err := openStore(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			launches, err := st.ListLaunches(cmd.Context(), store.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				return fmt.Errorf("list launches: %w", err)
			}
			if len(launches) == 0 {
				fmt.Fprintln(out, "No launches recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-44s  %-10s  %-40s  %-5s  %s\n", "ID", "STATE", "RUN", "JOBS", "STARTED")
			fmt.Fprintf(out, "%-44s  %-10s  %-40s  %-5s  %s\n", "--", "-----", "---", "----", "-------")
			for _, l := range launches {
				fmt.Fprintf(out, "%-44s  %-10s  %-40s  %-5d  %s\n",
					l.ID, l.State, l.RunName, len(l.Jobs), humanize.Time(l.CreatedAt))
				if l.Error != "" {
					fmt.Fprintf(out, "    error: %s\n", l.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "Launch history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of launches to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of launches to skip")
	return cmd
}
