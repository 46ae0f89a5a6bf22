package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/NotJohn04/commitkeeper/internal/config"
	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/spf13/cobra"
)

// NewHabitsCmd creates the habits command
func NewHabitsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "habits",
		Short: "List habit definitions",
		Long:  "List habit definitions, for one user or for the whole service",
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

			repo := database.NewHabitRepository(db)
			ctx := context.Background()

			habits, err := repo.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list habits: %w", err)
			}

			shown := 0
			for _, h := range habits {
				if userID != "" && h.UserID != userID {
					continue
				}
				shown++
				fmt.Printf("  - %s\n", h.Description)
				fmt.Printf("    ID: %s\n", h.ID)
				fmt.Printf("    User: %s\n", h.UserID)
				fmt.Printf("    Schedule: %s at %s (%d min)\n", h.Frequency, h.TimeOfDay, h.DurationMinutes)
				fmt.Println()
			}

			if shown == 0 {
				fmt.Println("No habits configured")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Only show habits for this user ID")

	return cmd
}
