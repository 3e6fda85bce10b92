// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	gwerrors "uidb/gateway/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// FormatError renders a gateway error as a titled block with a hint on what to do
// next and, for database failures, the driver's own message.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	kind := gwerrors.KindOf(err)
	var e *gwerrors.E
	message := err.Error()
	detail := ""
	if gwerrors.As(err, &e) {
		message = e.Message
		detail = e.Detail
	}

	var builder strings.Builder
	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(errorTitle(kind)))
	builder.WriteString("\n\n")
	builder.WriteString(Mask(message))
	builder.WriteString("\n")

	if hint := errorHint(kind); hint != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ " + hint))
		builder.WriteString("\n")
	}

	if strings.TrimSpace(detail) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Database said: " + Mask(detail)))
	}
	return builder.String()
}

func errorTitle(kind gwerrors.Kind) string {
	switch kind {
	case gwerrors.NotFound:
		return "No Database Connected"
	case gwerrors.DuplicateTable:
		return "Already Exists"
	case gwerrors.ConnectionError:
		return "Cannot Reach Database"
	case gwerrors.ExecutionError:
		return "Query Failed"
	case gwerrors.NoMatch:
		return "No Matching Rows"
	case gwerrors.ValidationError:
		return "Invalid Input"
	default:
		return "Unexpected Error"
	}
}

func errorHint(kind gwerrors.Kind) string {
	switch kind {
	case gwerrors.NotFound:
		return "Run 'uidb connect' to register your database"
	case gwerrors.ConnectionError:
		return "Check host, port and credentials with 'uidb dbinfo'"
	case gwerrors.DuplicateTable:
		return "Pick another name, or run 'uidb disconnect' first"
	case gwerrors.ValidationError:
		return "Fix the request and try again"
	default:
		return ""
	}
}

// PresentGatewayError prints FormatError output surrounded by blank lines.
func PresentGatewayError(err error) {
	fmt.Println()
	fmt.Println(FormatError(err))
	fmt.Println()
}
