package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/highbeam/pulseboard/internal/ipc"
	"github.com/highbeam/pulseboard/internal/rules"
)

// ANSI escape codes for terminal formatting.
const (
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	reset  = "\033[0m"
)

// maxCellWidth truncates long names in terminal tables.
const maxCellWidth = 32

// FormatReport formats a Report as a terminal-friendly string.
// Completion rates: >=70% green, 30-70% yellow, <30% red.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString(bold + "Pulseboard - Project Report" + reset + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	period := Label(string(r.Window))
	if r.Range != nil {
		period = fmt.Sprintf("%s to %s", r.Range.Start.Format("2006-01-02"), r.Range.End.Format("2006-01-02"))
	}
	b.WriteString(fmt.Sprintf("%-14s %s\n", "Period:", period))
	if f := describeFilters(r.Filters); f != "" {
		b.WriteString(fmt.Sprintf("%-14s %s\n", "Filters:", f))
	}
	b.WriteString(fmt.Sprintf("%-14s %s\n\n", "Generated:", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	for _, m := range KeyMetrics(r) {
		value := m.Value
		if m.Label == "Completion" {
			value = colorForRate(r.Totals.CompletionRate) + bold + value + reset
		}
		b.WriteString(fmt.Sprintf("%-14s %s\n", m.Label+":", value))
	}
	b.WriteString("\n")

	for _, s := range Tables(r) {
		if len(s.Rows) == 0 {
			continue
		}
		writeTable(&b, s)
	}

	return b.String()
}

func writeTable(b *strings.Builder, s Section) {
	widths := make([]int, len(s.Columns))
	for i, c := range s.Columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for _, row := range s.Rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(truncate(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}

	title := s.Title
	if s.Title == "At-Risk Projects" {
		title = red + title + reset
	}
	b.WriteString(bold + title + reset + "\n")
	b.WriteString(strings.Repeat("-", total) + "\n")
	writeRow(b, s.Columns, widths)
	b.WriteString(strings.Repeat("-", total) + "\n")
	for _, row := range s.Rows {
		writeRow(b, row, widths)
	}
	b.WriteString("\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		cell = truncate(cell)
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(cell)
		if pad := widths[i] - utf8.RuneCountInString(cell); pad > 0 && i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	b.WriteByte('\n')
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCellWidth {
		return s
	}
	return string(r[:maxCellWidth-3]) + "..."
}

// describeFilters summarises the non-date filters, or "" when none apply.
func describeFilters(f Filters) string {
	var parts []string
	if f.TeamID != "" {
		parts = append(parts, "team="+f.TeamID)
	}
	if f.ProjectID != "" {
		parts = append(parts, "project="+f.ProjectID)
	}
	if f.AssigneeID != "" {
		parts = append(parts, "assignee="+f.AssigneeID)
	}
	if f.Priority != 0 {
		parts = append(parts, fmt.Sprintf("priority=%d", f.Priority))
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, "status="+strings.Join(f.Statuses, ","))
	}
	if f.DateField != "" && f.DateField != "created_at" {
		parts = append(parts, "date_field="+f.DateField)
	}
	return strings.Join(parts, " ")
}

// FormatStatus formats daemon StatusData as a terminal-friendly table.
func FormatStatus(status *ipc.StatusData) string {
	var b strings.Builder

	b.WriteString(bold + "Pulseboard - Daemon Status" + reset + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	b.WriteString(fmt.Sprintf("%-20s %s\n", "Uptime:", status.Uptime))
	b.WriteString(fmt.Sprintf("%-20s %s\n", "DB Size:", humanBytes(status.DBSizeBytes)))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Projects:", status.Projects))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Tasks:", status.Tasks))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Assignments:", status.Assignments))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Employees:", status.Employees))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Teams:", status.Teams))
	b.WriteString(fmt.Sprintf("%-20s %d\n", "Activity:", status.Activity))
	b.WriteString(fmt.Sprintf("%-20s %s\n", "Snapshot Dir:", status.SnapshotDir))

	if status.LastImportID != "" {
		b.WriteString(fmt.Sprintf("\n%sLast Import:%s\n", bold, reset))
		b.WriteString(fmt.Sprintf("  %-10s %s\n", "ID:", status.LastImportID))
		b.WriteString(fmt.Sprintf("  %-10s %s\n", "Source:", status.LastImportSource))
		b.WriteString(fmt.Sprintf("  %-10s %s\n", "At:", status.LastImportAt))
	} else {
		b.WriteString(fmt.Sprintf("%-20s %s\n", "Last Import:", "(none)"))
	}

	return b.String()
}

// FormatViolations lists business-rule violations, one per line.
func FormatViolations(vs []rules.Violation) string {
	if len(vs) == 0 {
		return green + "No rule violations." + reset + "\n"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s%d rule violation(s)%s\n", bold+red, len(vs), reset))
	for _, v := range vs {
		b.WriteString(fmt.Sprintf("  %-20s %-12s %s\n", v.Rule, v.EntityID, v.Reason))
	}
	return b.String()
}

// FormatJSON marshals any value as indented JSON.
func FormatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// colorForRate returns an ANSI color for a completion rate in [0, 1].
func colorForRate(rate float64) string {
	switch {
	case rate >= 0.7:
		return green
	case rate >= 0.3:
		return yellow
	default:
		return red
	}
}

// humanBytes formats bytes as a human-readable string (KB, MB, GB).
func humanBytes(b int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)

	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
