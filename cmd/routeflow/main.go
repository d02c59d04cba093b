// Package main provides the RouteFlow command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "routeflow",
	Short: "Model routing and resilient execution engine",
	Long:  "RouteFlow classifies conversational requests, routes them to the best provider/model candidate, and executes with automatic failover across a fallback chain.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
