// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Terminal styles. When stdout is not a TTY every style renders plain,
// so piped output stays machine-readable.
var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#1D9EA3"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7A80"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#21C063"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7A32C"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5484D"))
)

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		plain := lipgloss.NewStyle()
		headingStyle = plain
		labelStyle = plain
		dimStyle = plain
		successStyle = plain
		warnStyle = plain
		errorStyle = plain
	}
}
