/*-------------------------------------------------------------------------
 *
 * file.go
 *    Evidence file commands for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/file.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	fileCmd = &cobra.Command{
		Use:   "file",
		Short: "Manage evidence files",
	}

	fileUploadCmd = &cobra.Command{
		Use:   "upload [case-id] [path]",
		Short: "Upload an evidence file to a case",
		Args:  cobra.ExactArgs(2),
		RunE:  uploadFile,
	}

	fileListCmd = &cobra.Command{
		Use:   "list [case-id]",
		Short: "List evidence files on a case",
		Args:  cobra.ExactArgs(1),
		RunE:  listFiles,
	}

	fileDownloadCmd = &cobra.Command{
		Use:   "download [file-id]",
		Short: "Download an evidence file",
		Args:  cobra.ExactArgs(1),
		RunE:  downloadFile,
	}

	downloadOutput string
)

func init() {
	fileDownloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output path (defaults to stdout)")

	fileCmd.AddCommand(fileUploadCmd)
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileDownloadCmd)
}

func uploadFile(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	fmt.Printf("📄 Uploading file: %s\n", args[1])
	f, err := apiClient.UploadFile(args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	fmt.Printf("✅ File uploaded successfully!\n")
	fmt.Printf("ID: %s\n", f.ID)
	fmt.Printf("Name: %s\n", f.FileName)
	fmt.Printf("Size: %d bytes\n", f.SizeBytes)
	if f.DuplicateOf != "" {
		fmt.Printf("⚠️  Duplicate of file %s\n", f.DuplicateOf)
	}
	return nil
}

func listFiles(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	list, err := apiClient.ListFiles(args[0])
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(list.Files) == 0 {
		fmt.Println("No files found")
		return nil
	}

	fmt.Println("\n📄 Files:")
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, f := range list.Files {
		fmt.Printf("  %-36s %10d  %s\n", f.ID, f.SizeBytes, f.FileName)
		if f.DuplicateOf != "" {
			fmt.Printf("    duplicate of %s\n", f.DuplicateOf)
		}
	}
	fmt.Println()

	return nil
}

func downloadFile(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	body, err := apiClient.DownloadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer body.Close()

	var out io.Writer = os.Stdout
	if downloadOutput != "" {
		dst, err := os.Create(downloadOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer dst.Close()
		out = dst
	}

	n, err := io.Copy(out, body)
	if err != nil {
		return fmt.Errorf("failed to write file content: %w", err)
	}

	if downloadOutput != "" {
		fmt.Printf("✅ Downloaded %d bytes to %s\n", n, downloadOutput)
	}
	return nil
}
