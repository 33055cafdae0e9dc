package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fieldline/crm-api/internal/cache"
	"github.com/fieldline/crm-api/internal/lifecycle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#AAAAAA"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6BCB77"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

var bucketColors = map[lifecycle.Bucket]lipgloss.Color{
	lifecycle.BucketPendingApprovals: lipgloss.Color("#F4B400"),
	lifecycle.BucketInProgress:       lipgloss.Color("#5B8DEF"),
	lifecycle.BucketTransferred:      lipgloss.Color("#B388FF"),
	lifecycle.BucketCompleted:        lipgloss.Color("#6BCB77"),
}

func statusCell(s lifecycle.Status) string {
	color, ok := bucketColors[lifecycle.BucketOf(s)]
	if !ok {
		return string(s)
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(s))
}

// renderTable lays rows out in padded columns under a bold header
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			s := lipgloss.NewStyle().Width(widths[i])
			if style != nil {
				s = s.Inherit(*style)
			}
			parts[i] = s.Render(cell)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := []string{line(headers, &headerStyle)}
	for _, row := range rows {
		lines = append(lines, line(row, nil))
	}
	if len(rows) == 0 {
		lines = append(lines, mutedStyle.Render("(none)"))
	}
	return strings.Join(lines, "\n")
}

func renderFields(title string, fields [][2]string) string {
	keyWidth := 0
	for _, f := range fields {
		if w := lipgloss.Width(f[0]); w > keyWidth {
			keyWidth = w
		}
	}
	key := headerStyle.Width(keyWidth + 2)
	lines := []string{titleStyle.Render(title)}
	for _, f := range fields {
		lines = append(lines, key.Render(f[0])+f[1])
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func sourceNote(source cache.Source, fetchedAt time.Time) string {
	if source == cache.SourceCache {
		return mutedStyle.Render(fmt.Sprintf("cached %s ago, refreshing", since(fetchedAt)))
	}
	return mutedStyle.Render("fresh from server")
}

func since(t time.Time) string {
	d := time.Since(t).Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	return d.Round(time.Minute).String()
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02")
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func short(id fmt.Stringer) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
