package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleCard    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("238"))

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),
		domain.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F00")),
		domain.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		domain.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")),
	}
)

func severityLabel(s domain.Severity) string {
	st, ok := severityStyles[s]
	if !ok {
		return string(s)
	}
	return st.Render(fmt.Sprintf("%-8s", s))
}

func renderSummary(w io.Writer, r *domain.ScanResult) {
	lines := []string{
		styleTitle.Render("HIPAA scan ") + styleDim.Render(string(r.ID)),
		fmt.Sprintf("Source:   %s (%s)", r.SourceName, r.Source),
		fmt.Sprintf("When:     %s", r.Timestamp.Local().Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Files:    %d", r.FilesScanned),
	}
	if r.LastCommitHash != "" {
		lines = append(lines, fmt.Sprintf("Commit:   %s", r.LastCommitHash))
	}
	if r.ArtifactURL != "" {
		lines = append(lines, fmt.Sprintf("Report:   %s", r.ArtifactURL))
	}
	c := r.Summary
	lines = append(lines, fmt.Sprintf("Findings: %d  %s %d  %s %d  %s %d  %s %d",
		c.Total,
		severityLabel(domain.SeverityCritical), c.Critical,
		severityLabel(domain.SeverityHigh), c.High,
		severityLabel(domain.SeverityMedium), c.Medium,
		severityLabel(domain.SeverityLow), c.Low))
	fmt.Fprintln(w, styleCard.Render(strings.Join(lines, "\n")))
}

func renderFindings(w io.Writer, findings []domain.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, styleSuccess.Render("No compliance issues found."))
		return
	}
	for i, f := range findings {
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(w, "\n%d. %s %s\n", i+1, severityLabel(f.Severity), styleTitle.Render(f.Title))
		if loc != "" {
			fmt.Fprintf(w, "   %s\n", styleDim.Render(loc))
		}
		if f.Category != "" {
			fmt.Fprintf(w, "   Category: %s\n", f.Category)
		}
		if f.Regulation != "" || f.PenaltyTier != "" {
			fmt.Fprintf(w, "   Regulation: %s %s\n", f.Regulation, styleDim.Render(f.PenaltyTier))
		}
		if f.Description != "" {
			fmt.Fprintf(w, "   %s\n", f.Description)
		}
		if f.Recommendation != "" {
			fmt.Fprintf(w, "   Fix: %s\n", f.Recommendation)
		}
		if f.CodeExample != "" {
			fmt.Fprintf(w, "%s\n", indent(f.CodeExample, "      "))
		}
	}
}

func renderResult(w io.Writer, r *domain.ScanResult) {
	renderSummary(w, r)
	renderFindings(w, r.Findings)
}

func renderHistory(w io.Writer, list []*domain.ScanResult) {
	if len(list) == 0 {
		fmt.Fprintln(w, styleDim.Render("No scans yet."))
		return
	}
	fmt.Fprintln(w, styleTitle.Render(fmt.Sprintf("%-36s  %-16s  %-6s  %5s  %4s  %4s  %s",
		"ID", "WHEN", "SOURCE", "FILES", "CRIT", "HIGH", "NAME")))
	for _, r := range list {
		fmt.Fprintf(w, "%-36s  %-16s  %-6s  %5d  %4d  %4d  %s\n",
			r.ID,
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Source,
			r.FilesScanned,
			r.Summary.Critical,
			r.Summary.High,
			r.SourceName)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
