// Package main provides the entry point for the content pipeline API server and CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "content_api",
	Short: "AI content pipeline API server",
	Long: `content_api stores client profiles and generates on-brand marketing content
for them through an OpenRouter-compatible chat completion gateway.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML settings file (defaults to $CONFIG_FILE)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
