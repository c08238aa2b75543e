// Package main is the entry point for the gamemaster API server
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gamemaster-api",
	Short: "Gamemaster session engine",
	Long: `Gamemaster API runs live tabletop sessions: shared session state,
combat turn order, and language-model narration parsed into typed
state changes.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	rootCmd.AddCommand(serverCmd)
}
