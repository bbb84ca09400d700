package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyflow/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studyflow",
		Short: "StudyFlow API Server",
		Long:  `StudyFlow is a study planner backend: per-user snapshot sync, accounts, and a shared past-paper repository.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
