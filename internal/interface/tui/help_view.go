package tui

func (m Model) viewHelp() string {
	help := `
Equipment Visualizer - Help
═══════════════════════════

HISTORY VIEW
────────────
  ↑/↓, j/k     Navigate recent uploads
  Enter        Load dataset
  u            Upload a CSV file
  r            Refresh history
  d, tab       Show current dataset
  x            Dismiss alert
  L            Log out
  ?            Show this help
  q            Quit

DATASET VIEW
────────────
  tab, l/h     Next/previous view
  1-4          Summary, distribution, pressure/temperature, data
  e            Download PDF report
  c            Copy show command to clipboard
  j/k          Scroll data table
  esc          Back to history
  q            Back to history

UPLOAD VIEW
───────────
  Type         Path of the CSV file
  Enter        Upload
  esc          Cancel upload, or go back

Press esc to return
`

	return helpStyle.Render(help)
}
