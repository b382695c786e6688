/*-------------------------------------------------------------------------
 *
 * workflow.go
 *    Workflow commands for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/workflow.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	workflowCmd = &cobra.Command{
		Use:   "workflow",
		Short: "Manage investigation workflows",
	}

	workflowStartCmd = &cobra.Command{
		Use:   "start [case-id]",
		Short: "Start an investigation workflow on a case",
		Args:  cobra.ExactArgs(1),
		RunE:  startWorkflow,
	}

	workflowListCmd = &cobra.Command{
		Use:   "list [case-id]",
		Short: "List workflows for a case",
		Args:  cobra.ExactArgs(1),
		RunE:  listWorkflows,
	}

	workflowStatusCmd = &cobra.Command{
		Use:   "status [workflow-id]",
		Short: "Show workflow status",
		Args:  cobra.ExactArgs(1),
		RunE:  workflowStatus,
	}

	workflowCancelCmd = &cobra.Command{
		Use:   "cancel [workflow-id]",
		Short: "Cancel a running workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  cancelWorkflow,
	}

	cancelReason string
)

func init() {
	workflowCancelCmd.Flags().StringVarP(&cancelReason, "reason", "r", "cancelled by operator", "Cancellation reason")

	workflowCmd.AddCommand(workflowStartCmd)
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowStatusCmd)
	workflowCmd.AddCommand(workflowCancelCmd)
}

func startWorkflow(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	fmt.Printf("🚀 Starting workflow for case: %s\n", args[0])
	result, err := apiClient.StartWorkflow(args[0])
	if err != nil {
		return fmt.Errorf("failed to start workflow: %w", err)
	}

	fmt.Printf("✅ Workflow queued!\n")
	fmt.Printf("Job ID: %d\n", result.JobID)
	fmt.Printf("Use 'case-cli watch %s' to follow progress\n", args[0])
	return nil
}

func listWorkflows(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	list, err := apiClient.ListWorkflows(args[0])
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	if len(list.Workflows) == 0 {
		fmt.Println("No workflows found")
		return nil
	}

	fmt.Println("\n⚙️  Workflows:")
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, wf := range list.Workflows {
		fmt.Printf("  %-36s %-13s", wf.ID, wf.Stage)
		if wf.ErrorKind != "" {
			fmt.Printf(" (%s)", wf.ErrorKind)
		}
		fmt.Println()
	}
	fmt.Println()

	return nil
}

func workflowStatus(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	wf, err := apiClient.GetWorkflow(args[0])
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}

	fmt.Printf("\n⚙️  Workflow: %s\n", wf.ID)
	fmt.Println("─────────────────────────────────────────────────────────")
	fmt.Printf("Case: %s\n", wf.CaseID)
	fmt.Printf("Stage: %s\n", wf.Stage)
	if wf.ErrorKind != "" {
		fmt.Printf("Error kind: %s\n", wf.ErrorKind)
	}
	if wf.ErrorSummary != "" {
		fmt.Printf("Error: %s\n", wf.ErrorSummary)
	}
	fmt.Printf("Tokens: %d in / %d out\n", wf.InputTokens, wf.OutputTokens)
	if wf.StartedAt != "" {
		fmt.Printf("Started: %s\n", wf.StartedAt)
	}
	if wf.CompletedAt != "" {
		fmt.Printf("Completed: %s\n", wf.CompletedAt)
	}
	fmt.Println()

	return nil
}

func cancelWorkflow(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	fmt.Printf("🛑 Cancelling workflow: %s\n", args[0])

	if err := apiClient.CancelWorkflow(args[0], cancelReason); err != nil {
		return fmt.Errorf("failed to cancel workflow: %w", err)
	}

	fmt.Println("✅ Workflow cancelled")
	return nil
}
