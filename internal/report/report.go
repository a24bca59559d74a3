// Package report renders artifact summaries as aligned text tables for the
// terminal. No analysis logic lives here.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davrell/licenseprobe/result"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dividerStyle = lipgloss.NewStyle().Faint(true)
	noneStyle    = lipgloss.NewStyle().Faint(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// dividerWidth matches the per-file table rather than the terminal; the
// output stays stable when piped.
const dividerWidth = 100

// WriteSummary renders the whole artifact report: the per-file table, any
// extracted metadata and the license frequency table.
func WriteSummary(w io.Writer, summary *result.Summary) {
	fmt.Fprintln(w, headerStyle.Render(summary.Artifact))
	fmt.Fprintln(w)

	writeFileTable(w, summary)
	writeMetadata(w, summary)

	fmt.Fprintln(w)
	fmt.Fprintln(w, dividerStyle.Render(strings.Repeat("=", dividerWidth)))
	fmt.Fprintln(w)
	writeLicenseCounts(w, summary)
}

// writeFileTable prints one row per file, with the path column sized to the
// longest path.
func writeFileTable(w io.Writer, summary *result.Summary) {
	pathWidth := 0
	for _, file := range summary.Files {
		if len(file.Path) > pathWidth {
			pathWidth = len(file.Path)
		}
	}

	for _, file := range summary.Files {
		padded := fmt.Sprintf("%-*s", pathWidth, file.Path)
		switch {
		case file.Failed():
			fmt.Fprintf(w, "%s  %s\n", padded, failedStyle.Render("[scan failed: "+file.Err+"]"))
		case file.License == "":
			fmt.Fprintf(w, "%s  %s\n", padded, noneStyle.Render("-"))
		case file.Confidence > 0:
			fmt.Fprintf(w, "%s  %s (%.1f%%)\n", padded, file.License, file.Confidence)
		default:
			fmt.Fprintf(w, "%s  %s (declared)\n", padded, file.License)
		}
	}
}

// writeMetadata prints the type-specific fields of every file that has any,
// with the field names right-aligned per block.
func writeMetadata(w io.Writer, summary *result.Summary) {
	for _, file := range summary.Files {
		if len(file.Metadata) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s [%s]\n", file.Path, file.Kind)

		nameWidth := 0
		for _, field := range file.Metadata {
			if len(field.Name) > nameWidth {
				nameWidth = len(field.Name)
			}
		}
		for _, field := range file.Metadata {
			fmt.Fprintf(w, "  %*s: %s\n", nameWidth, field.Name, field.Value)
		}
	}
}

// writeLicenseCounts prints the license frequency table, sorted by license
// expression with the none bucket last.
func writeLicenseCounts(w io.Writer, summary *result.Summary) {
	if len(summary.LicenseCounts) == 0 && summary.FailedCount == 0 {
		fmt.Fprintln(w, noneStyle.Render("No files analyzed."))
		return
	}

	licenses := make([]string, 0, len(summary.LicenseCounts))
	licenseWidth := 0
	for license := range summary.LicenseCounts {
		if license != result.NoLicense {
			licenses = append(licenses, license)
		}
		if len(license) > licenseWidth {
			licenseWidth = len(license)
		}
	}
	sort.Strings(licenses)

	countWidth := len(fmt.Sprint(maxCount(summary)))
	for _, license := range licenses {
		fmt.Fprintf(w, "%*s  %*d\n", licenseWidth, license, countWidth, summary.LicenseCounts[license])
	}
	if n, ok := summary.LicenseCounts[result.NoLicense]; ok {
		fmt.Fprintf(w, "%s  %*d\n", noneStyle.Render(fmt.Sprintf("%*s", licenseWidth, result.NoLicense)), countWidth, n)
	}
	if summary.FailedCount > 0 {
		fmt.Fprintf(w, "%s  %*d\n", failedStyle.Render(fmt.Sprintf("%*s", licenseWidth, "(scan failed)")), countWidth, summary.FailedCount)
	}
}

func maxCount(summary *result.Summary) int {
	max := summary.FailedCount
	for _, n := range summary.LicenseCounts {
		if n > max {
			max = n
		}
	}
	return max
}
