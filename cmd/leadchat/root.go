package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leadchat",
	Short: "Leadchat is a guided-conversation lead capture engine",
	Long: `Leadchat runs scripted chat-widget conversations that qualify website
visitors and capture their contact details as leads.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("script", "", "Path to a YAML conversation script (default: built-in)")
}

// scriptPathFromFlags resolves the --script flag, falling back to the
// configured path (LEADCHAT_SCRIPT). Empty means the built-in script.
func scriptPathFromFlags(cmd *cobra.Command, fallback string) string {
	path, _ := cmd.Flags().GetString("script")
	if path == "" {
		path = fallback
	}
	return path
}
