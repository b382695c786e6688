/*-------------------------------------------------------------------------
 *
 * confirm.go
 *    Human confirmation commands for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/confirm.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	confirmCmd = &cobra.Command{
		Use:   "confirm",
		Short: "Resolve pending action confirmations",
	}

	confirmListCmd = &cobra.Command{
		Use:   "list [case-id]",
		Short: "List pending confirmations for a case",
		Args:  cobra.ExactArgs(1),
		RunE:  listConfirmations,
	}

	confirmApproveCmd = &cobra.Command{
		Use:   "approve [case-id] [request-id]",
		Short: "Approve a pending action",
		Args:  cobra.ExactArgs(2),
		RunE:  approveConfirmation,
	}

	confirmRejectCmd = &cobra.Command{
		Use:   "reject [case-id] [request-id]",
		Short: "Reject a pending action",
		Args:  cobra.ExactArgs(2),
		RunE:  rejectConfirmation,
	}

	confirmReason string
)

func init() {
	confirmApproveCmd.Flags().StringVarP(&confirmReason, "reason", "r", "", "Decision reason")
	confirmRejectCmd.Flags().StringVarP(&confirmReason, "reason", "r", "", "Decision reason")

	confirmCmd.AddCommand(confirmListCmd)
	confirmCmd.AddCommand(confirmApproveCmd)
	confirmCmd.AddCommand(confirmRejectCmd)
}

func listConfirmations(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	list, err := apiClient.ListPendingConfirmations(args[0])
	if err != nil {
		return fmt.Errorf("failed to list confirmations: %w", err)
	}

	if len(list.Confirmations) == 0 {
		fmt.Println("No pending confirmations")
		return nil
	}

	fmt.Println("\n⏳ Pending confirmations:")
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, conf := range list.Confirmations {
		fmt.Printf("  %s\n", conf.ID)
		fmt.Printf("    %s\n", conf.ActionDescription)
		fmt.Printf("    requested %s\n", conf.CreatedAt)
	}
	fmt.Println()

	return nil
}

func approveConfirmation(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	if err := apiClient.ResolveConfirmation(args[0], args[1], true, confirmReason); err != nil {
		return fmt.Errorf("failed to approve: %w", err)
	}

	fmt.Println("✅ Action approved")
	return nil
}

func rejectConfirmation(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	if err := apiClient.ResolveConfirmation(args[0], args[1], false, confirmReason); err != nil {
		return fmt.Errorf("failed to reject: %w", err)
	}

	fmt.Println("🚫 Action rejected")
	return nil
}
