// Package tui holds terminal presentation helpers for the spindle binary.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`           _           _ _      `,
	` ___ _ __ (_)_ __   __| | | ___ `,
	`/ __| '_ \| | '_ \ / _' | |/ _ \`,
	`\__ \ |_) | | | | | (_| | |  __/`,
	`|___/ .__/|_|_| |_|\__,_|_|\___|`,
	`    |_|                         `,
}

// Indigo to rose, one shade per banner line.
var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

// PrintBanner writes the ASCII banner and version to w, coloured when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
