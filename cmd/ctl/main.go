package main

import (
	"fmt"
	"os"

	"github.com/NotJohn04/commitkeeper/cmd/ctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "commitkeeper-ctl",
		Short: "Operations tool for the commitkeeper service",
		Long:  "CLI tool for inspecting and resolving commitments directly against the database",
	}

	rootCmd.AddCommand(commands.NewTodayCmd())
	rootCmd.AddCommand(commands.NewResolveCmd())
	rootCmd.AddCommand(commands.NewHabitsCmd())
	rootCmd.AddCommand(commands.NewJobsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
