package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/neilberkman/eqviz/internal/core/render"
)

const (
	barGlyph       = "█"
	pointGlyph     = "•"
	maxColumnWidth = 24
)

// renderBars draws the type distribution as horizontal bars scaled to the
// largest count
func renderBars(slices []render.Slice, width int) string {
	if len(slices) == 0 {
		return "No equipment types."
	}

	labelWidth, maxCount := 0, 0
	for _, s := range slices {
		labelWidth = max(labelWidth, lipgloss.Width(s.Type))
		maxCount = max(maxCount, s.Count)
	}

	// Bar uses what's left after label and "count (pct%)"
	barWidth := width - labelWidth - 20
	if barWidth > 50 {
		barWidth = 50
	}
	if barWidth < 10 {
		barWidth = 10
	}

	var b strings.Builder
	for i, s := range slices {
		filled := 0
		if maxCount > 0 {
			filled = int(math.Round(float64(barWidth) * float64(s.Count) / float64(maxCount)))
		}
		if s.Count > 0 && filled == 0 {
			filled = 1
		}
		bar := barStyle.Render(strings.Repeat(barGlyph, filled)) + strings.Repeat(" ", barWidth-filled)
		label := s.Type + strings.Repeat(" ", labelWidth-lipgloss.Width(s.Type))
		fmt.Fprintf(&b, "%s %s %d (%.1f%%)", label, bar, s.Count, s.Percent)
		if i < len(slices)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// renderScatter plots temperature against pressure on a width x height
// character grid
func renderScatter(pts []render.Point, width, height int) string {
	if len(pts) == 0 {
		return "No pressure/temperature readings."
	}
	width = max(width, 10)
	height = max(height, 4)

	minP, maxP, minT, maxT := render.Bounds(pts)
	grid := make([][]bool, height)
	for i := range grid {
		grid[i] = make([]bool, width)
	}
	for _, p := range pts {
		col := scale(p.Pressure, minP, maxP, width)
		row := height - 1 - scale(p.Temperature, minT, maxT, height)
		grid[row][col] = true
	}

	yTop := fmt.Sprintf("%.1f", maxT)
	yBottom := fmt.Sprintf("%.1f", minT)
	axisWidth := max(len(yTop), len(yBottom))

	var b strings.Builder
	b.WriteString(metaStyle.Render("Temperature vs Pressure") + "\n")
	for i, line := range grid {
		label := ""
		switch i {
		case 0:
			label = yTop
		case height - 1:
			label = yBottom
		}
		fmt.Fprintf(&b, "%*s │", axisWidth, label)
		for _, hit := range line {
			if hit {
				b.WriteString(pointStyle.Render(pointGlyph))
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%*s └%s\n", axisWidth, "", strings.Repeat("─", width))

	xLeft := fmt.Sprintf("%.1f", minP)
	xRight := fmt.Sprintf("%.1f", maxP)
	gap := max(width-len(xLeft)-len(xRight), 1)
	fmt.Fprintf(&b, "%*s  %s%s%s", axisWidth, "", xLeft, strings.Repeat(" ", gap), xRight)
	return b.String()
}

// scale maps v in [lo, hi] onto 0..cells-1. A flat range lands in the
// middle.
func scale(v, lo, hi float64, cells int) int {
	if hi <= lo {
		return cells / 2
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(cells-1)))
	return min(max(i, 0), cells-1)
}

// renderTable lays out rows in aligned columns, truncating long cells
func renderTable(header []string, rows [][]string) string {
	if len(header) == 0 {
		return "No rows."
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = min(lipgloss.Width(h), maxColumnWidth)
	}
	for _, r := range rows {
		for i, cell := range r {
			if i < len(widths) {
				widths[i] = min(max(widths[i], lipgloss.Width(cell)), maxColumnWidth)
			}
		}
	}

	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(joinCells(header, widths)) + "\n")
	total := 2 * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	b.WriteString(strings.Repeat("─", total))
	for _, r := range rows {
		b.WriteString("\n" + joinCells(r, widths))
	}
	return b.String()
}

func joinCells(cells []string, widths []int) string {
	out := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = truncate(cells[i], w)
		}
		out[i] = cell + strings.Repeat(" ", w-lipgloss.Width(cell))
	}
	return strings.TrimRight(strings.Join(out, "  "), " ")
}

func truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}
