package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"     _        _       ", "#818cf8"},
	{" ___| | _____(_)_ __  ", "#a78bfa"},
	{"/ __| |/ / _ \\ | '_ \\ ", "#c084fc"},
	{"\\__ \\   <  __/ | | | |", "#e879f9"},
	{"|___/_|\\_\\___|_|_| |_|", "#f472b6"},
}

// PrintBanner writes the skein banner followed by the story title.
// Colours are only used when w is a terminal.
func PrintBanner(w io.Writer, title string) {
	out := termenv.NewOutput(w)
	styled := IsTerminal(w)

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		if styled {
			fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
		} else {
			fmt.Fprintln(w, l.text)
		}
	}
	if title != "" {
		fmt.Fprintln(w)
		if styled {
			fmt.Fprintln(w, out.String(title).Bold())
		} else {
			fmt.Fprintln(w, title)
		}
	}
	fmt.Fprintln(w)
}
