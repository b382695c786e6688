/*-------------------------------------------------------------------------
 *
 * results.go
 *    Finding and verdict commands for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/results.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	findingsCmd = &cobra.Command{
		Use:   "findings [case-id]",
		Short: "List findings for a case",
		Args:  cobra.ExactArgs(1),
		RunE:  listFindings,
	}

	verdictCmd = &cobra.Command{
		Use:   "verdict [case-id]",
		Short: "Show the case verdict",
		Args:  cobra.ExactArgs(1),
		RunE:  showVerdict,
	}
)

func listFindings(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	list, err := apiClient.ListFindings(args[0])
	if err != nil {
		return fmt.Errorf("failed to list findings: %w", err)
	}

	if len(list.Findings) == 0 {
		fmt.Println("No findings found")
		return nil
	}

	fmt.Println("\n🔍 Findings:")
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, f := range list.Findings {
		fmt.Printf("  [%s] %s (confidence %.2f)\n", f.Category, f.Title, f.Confidence)
		fmt.Printf("    %s\n", truncate(f.Narrative, 120))
		if f.CitationFlagged {
			fmt.Printf("    ⚠️  citation flagged: %s\n", f.FlagReason)
		}
	}
	fmt.Println()

	return nil
}

func showVerdict(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	verdict, err := apiClient.GetVerdict(args[0])
	if err != nil {
		return fmt.Errorf("failed to get verdict: %w", err)
	}

	fmt.Printf("\n⚖️  Verdict\n")
	fmt.Println("─────────────────────────────────────────────────────────")
	fmt.Printf("Assessment: %s\n", verdict.Assessment)
	fmt.Printf("Confidence: %.2f\n", verdict.Confidence)
	fmt.Printf("\n%s\n\n", verdict.Summary)

	return nil
}
