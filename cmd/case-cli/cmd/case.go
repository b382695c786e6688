/*-------------------------------------------------------------------------
 *
 * case.go
 *    Case management commands for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/case.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	caseCmd = &cobra.Command{
		Use:   "case",
		Short: "Manage investigation cases",
	}

	caseCreateCmd = &cobra.Command{
		Use:   "create [title]",
		Short: "Create a new case",
		Args:  cobra.ExactArgs(1),
		RunE:  createCase,
	}

	caseListCmd = &cobra.Command{
		Use:   "list",
		Short: "List cases",
		RunE:  listCases,
	}

	caseShowCmd = &cobra.Command{
		Use:   "show [case-id]",
		Short: "Show case details",
		Args:  cobra.ExactArgs(1),
		RunE:  showCase,
	}

	caseDeleteCmd = &cobra.Command{
		Use:   "delete [case-id]",
		Short: "Delete a case",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteCase,
	}

	caseListLimit  int
	caseListOffset int
)

func init() {
	caseListCmd.Flags().IntVar(&caseListLimit, "limit", 50, "Maximum number of cases to list")
	caseListCmd.Flags().IntVar(&caseListOffset, "offset", 0, "Number of cases to skip")

	caseCmd.AddCommand(caseCreateCmd)
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseShowCmd)
	caseCmd.AddCommand(caseDeleteCmd)
}

func createCase(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	fmt.Printf("🚀 Creating case: %s\n", args[0])
	c, err := apiClient.CreateCase(args[0])
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	fmt.Printf("✅ Case created successfully!\n")
	fmt.Printf("ID: %s\n", c.ID)
	fmt.Printf("Status: %s\n", c.Status)
	return nil
}

func listCases(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	list, err := apiClient.ListCases(caseListLimit, caseListOffset)
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}

	if len(list.Cases) == 0 {
		fmt.Println("No cases found")
		return nil
	}

	fmt.Println("\n📁 Cases:")
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, c := range list.Cases {
		fmt.Printf("  %-36s %-10s %s\n", c.ID, c.Status, truncate(c.Title, 60))
	}
	fmt.Println()

	return nil
}

func showCase(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	c, err := apiClient.GetCase(args[0])
	if err != nil {
		return fmt.Errorf("failed to get case: %w", err)
	}

	fmt.Printf("\n📁 Case: %s\n", c.Title)
	fmt.Println("─────────────────────────────────────────────────────────")
	fmt.Printf("ID: %s\n", c.ID)
	fmt.Printf("Status: %s\n", c.Status)
	if c.CreatedBy != "" {
		fmt.Printf("Created by: %s\n", c.CreatedBy)
	}
	fmt.Printf("Created: %s\n", c.CreatedAt)
	if c.LatestWorkflowID != "" {
		fmt.Printf("Latest workflow: %s\n", c.LatestWorkflowID)
	}
	fmt.Println()

	return nil
}

func deleteCase(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	fmt.Printf("🗑️  Deleting case: %s\n", args[0])

	if err := apiClient.DeleteCase(args[0]); err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}

	fmt.Println("✅ Case deleted successfully")
	return nil
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
