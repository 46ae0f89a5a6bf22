package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/config"
	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/spf13/cobra"
)

// NewTodayCmd creates the today command
func NewTodayCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "today",
		Short: "List a user's commitments for today",
		Long:  "List every commitment scheduled for the current day in the service timezone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			loc := cfg.Location()
			now := time.Now().In(loc)
			from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
			to := from.AddDate(0, 0, 1)

			repo := database.NewCommitmentRepository(db)
			commitments, err := repo.ListByUserBetween(context.Background(), userID, from, to)
			if err != nil {
				return fmt.Errorf("failed to list commitments: %w", err)
			}

			if len(commitments) == 0 {
				fmt.Println("Nothing scheduled today")
				return nil
			}

			fmt.Printf("Commitments for %s:\n", from.Format("2006-01-02"))
			for _, c := range commitments {
				fmt.Printf("  - %s [%s]\n", c.Description, c.Kind)
				fmt.Printf("    ID: %s\n", c.ID)
				fmt.Printf("    At: %s (%d min)\n", c.ScheduledAt.In(loc).Format("15:04"), c.DurationMinutes)
				fmt.Printf("    Status: %s\n", c.Status)
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID to list commitments for")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
