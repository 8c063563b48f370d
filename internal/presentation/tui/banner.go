package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the arbor banner to w.
func PrintBanner(w io.Writer, p termenv.Profile) {
	lines := []struct{ text, color string }{
		{"    _         _", "#34d399"},
		{"   /_\\  _ _ _| |__  ___ _ _", "#10b981"},
		{"  / _ \\| '_| '_ \\/ _ \\ '_|", "#059669"},
		{" /_/ \\_\\_| |_.__/\\___/_|", "#047857"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
