// Package main is the entry point for the encounter API server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "encounter-api",
	Short: "Encounter Combat API Server",
	Long:  `Encounter API provides an HTTP interface for managing tabletop combat encounters, participants, and initiative, with realtime streaming to viewers.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
