/*-------------------------------------------------------------------------
 *
 * root.go
 *    Root command and global flags for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/root.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/casetrace/CaseTrace/cmd/case-cli/client"
)

var (
	apiURL string
	apiKey string
)

var rootCmd = &cobra.Command{
	Use:   "case-cli",
	Short: "CaseTrace CLI - case investigation from the command line",
	Long: `CaseTrace CLI drives investigations against a CaseTrace server.

Examples:
  # Create a case and attach evidence
  case-cli case create "Offshore transfer review"
  case-cli file upload <case-id> ./statements.pdf

  # Run the investigation and watch it
  case-cli workflow start <case-id>
  case-cli watch <case-id>

  # Approve a pending action
  case-cli confirm list <case-id>
  case-cli confirm approve <case-id> <request-id> --reason "verified"

  # Read the results
  case-cli findings <case-id>
  case-cli verdict <case-id>
`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", getEnvOrDefault("CASETRACE_URL", "http://localhost:8480"), "CaseTrace API URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", getEnvOrDefault("CASETRACE_API_KEY", ""), "CaseTrace API key (required)")

	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(findingsCmd)
	rootCmd.AddCommand(verdictCmd)
	rootCmd.AddCommand(watchCmd)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newClient() *client.Client {
	return client.NewClient(apiURL, apiKey)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
