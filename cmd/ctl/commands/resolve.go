package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/config"
	"github.com/NotJohn04/commitkeeper/internal/database"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/NotJohn04/commitkeeper/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <commitment-id> <done|missed|cancelled>",
		Short: "Resolve a pending commitment",
		Long:  "Mark a pending commitment as done, missed or cancelled. Any job the worker still has for it will be dropped on delivery.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid commitment id %q: %w", args[0], err)
			}
			if err := validation.ValidateTerminalStatus(args[1]); err != nil {
				return err
			}
			status := models.Status(args[1])

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

			repo := database.NewCommitmentRepository(db)
			err = repo.MarkResolved(context.Background(), id, status, time.Now().UTC())
			switch {
			case errors.Is(err, database.ErrNotFound):
				return fmt.Errorf("commitment %s not found", id)
			case errors.Is(err, database.ErrAlreadyResolved):
				return fmt.Errorf("commitment %s was already resolved", id)
			case err != nil:
				return fmt.Errorf("failed to resolve commitment: %w", err)
			}

			fmt.Printf("Commitment %s marked %s\n", id, status)
			return nil
		},
	}

	return cmd
}
