package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyflow/core/cmd/studysync/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "studysync",
		Short: "StudyFlow sync client",
		Long:  `studysync keeps a local copy of your study plan and syncs it with the StudyFlow server, merging offline edits without losing tasks.`,
	}

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "API server base URL")
	rootCmd.PersistentFlags().String("db", commands.DefaultStorePath(), "Path to the local database")

	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewPullCommand())
	rootCmd.AddCommand(commands.NewPushCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewTaskCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
