/*-------------------------------------------------------------------------
 *
 * sanitize.go
 *    Input sanitization utilities for CaseTrace
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/validation/sanitize.go
 *
 *-------------------------------------------------------------------------
 */

package validation

import (
	"html"
	"regexp"
	"strings"
)

var (
	identifierPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	filenamePattern   = regexp.MustCompile(`[^a-zA-Z0-9._ -]`)
)

/* SanitizeString trims and HTML-escapes a string input */
func SanitizeString(input string) string {
	output := strings.TrimSpace(input)
	output = html.EscapeString(output)
	return output
}

/* SanitizeIdentifier strips anything outside [a-zA-Z0-9_-] */
func SanitizeIdentifier(input string) string {
	return identifierPattern.ReplaceAllString(input, "")
}

/* SanitizeFilename sanitizes a filename to prevent path traversal */
func SanitizeFilename(input string) string {
	/* Keep the basename only, then strip dangerous characters */
	output := input
	if idx := strings.LastIndexAny(output, "/\\"); idx >= 0 {
		output = output[idx+1:]
	}
	output = filenamePattern.ReplaceAllString(output, "")

	/* Leading dots would produce hidden files */
	output = strings.TrimLeft(output, ".")

	if len(output) > 255 {
		output = output[:255]
	}

	return output
}
