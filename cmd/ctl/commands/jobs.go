package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/NotJohn04/commitkeeper/internal/config"
	"github.com/NotJohn04/commitkeeper/internal/scheduler"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewJobsCmd creates the jobs command
func NewJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs <commitment-id>",
		Short: "Show which scheduled jobs a commitment still has",
		Long:  "Check the shared job registry for the commitment's check, expiry and reminder jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid commitment id %q: %w", args[0], err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("invalid redis url: %w", err)
			}
			client := redis.NewClient(redisOpts)
			defer func() {
				if err := client.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close redis: %v\n", err)
				}
			}()

			registry := scheduler.NewRedisRegistry(client)
			ctx := context.Background()

			for _, kind := range []scheduler.JobKind{scheduler.JobKindCheck, scheduler.JobKindExpire, scheduler.JobKindRemind} {
				jobID := scheduler.JobID(kind, id)
				live, err := registry.Exists(ctx, jobID)
				if err != nil {
					return fmt.Errorf("failed to check job %s: %w", jobID, err)
				}
				state := "none"
				if live {
					state = "scheduled"
				}
				fmt.Printf("  %-7s %s\n", kind, state)
			}

			return nil
		},
	}

	return cmd
}
