/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for case-cli
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/cmd/case-cli/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"github.com/casetrace/CaseTrace/cmd/case-cli/cmd"
)

func main() {
	cmd.Execute()
}
