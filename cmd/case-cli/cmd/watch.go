/*-------------------------------------------------------------------------
 *
 * watch.go
 *    Live case event stream for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/cmd/watch.go
 *
 *-------------------------------------------------------------------------
 */

package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [case-id]",
	Short: "Stream case events to the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  watchCase,
}

func watchCase(cmd *cobra.Command, args []string) error {
	apiClient := newClient()

	stream, err := apiClient.StreamEvents(args[0])
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer stream.Close()

	fmt.Printf("👀 Watching case %s (Ctrl+C to stop)\n", args[0])

	/* SSE frames are "event: <name>" followed by "data: <json>" and a
	 * blank line */
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			fmt.Printf("  %-24s %s\n", eventName, strings.TrimPrefix(line, "data: "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream ended: %w", err)
	}

	fmt.Println("Stream closed by server")
	return nil
}
