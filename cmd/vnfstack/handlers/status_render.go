package handlers

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	statusColorGreen = lipgloss.Color("#22c55e")
	statusColorRed   = lipgloss.Color("#ef4444")
	statusColorAmber = lipgloss.Color("#f59e0b")
	statusColorDim   = lipgloss.Color("#6b7280")
	statusColorWhite = lipgloss.Color("#f9fafb")
)

var (
	statusTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(statusColorWhite)
	statusHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(statusColorDim).Padding(0, 1)
	statusCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const statusColumn = 2

// renderStatus renders the rows as a table. Colours and borders are used
// only for terminals.
func renderStatus(environment string, rows []ResourceStatus, styled bool) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Kind, r.Name, r.Status, dash(r.ID), dash(r.Address), dash(r.FloatingIP)})
	}

	t := table.New().
		Headers("KIND", "NAME", "STATUS", "ID", "ADDRESS", "FLOATING IP").
		Rows(data...)

	var b strings.Builder
	if !styled {
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
			BorderHeader(false).BorderColumn(false)
		b.WriteString("environment " + environment + "\n")
		b.WriteString(t.Render())
		b.WriteString("\n")
		return b.String()
	}

	t = t.Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(statusColorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return statusHeaderStyle
			}
			if col == statusColumn && row >= 0 && row < len(data) {
				return statusCellStyle.Foreground(statusColor(data[row][statusColumn]))
			}
			return statusCellStyle
		})
	b.WriteString(statusTitleStyle.Render("vnfstack status: " + environment))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func statusColor(status string) lipgloss.Color {
	switch status {
	case "ACTIVE", "active", "present":
		return statusColorGreen
	case "ERROR", "killed", "deleted":
		return statusColorRed
	case statusAbsent:
		return statusColorDim
	}
	return statusColorAmber
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
