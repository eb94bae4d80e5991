package cmd

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles renders CLI output. Colors are dropped when out is not a terminal.
type styles struct {
	title lipgloss.Style
	warn  lipgloss.Style
	hint  lipgloss.Style
	muted lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		title: r.NewStyle().Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		hint:  r.NewStyle().Foreground(lipgloss.Color("14")),
		muted: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
