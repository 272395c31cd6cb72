package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const maxDisplayURL = 70

// statusBar pins a "[done/total] url" line to the bottom of the terminal
// while results scroll above it. It is a no-op when stderr is not a TTY.
type statusBar struct {
	out       io.Writer
	total     int
	completed int
	height    int
}

func newStatusBar(out *os.File, total int, enabled bool) *statusBar {
	bar := &statusBar{out: out, total: total}
	if !enabled || !term.IsTerminal(int(out.Fd())) {
		return bar
	}

	_, height, err := term.GetSize(int(out.Fd()))
	if err != nil || height <= 1 {
		return bar
	}
	bar.height = height

	// Scroll region excludes the bottom line
	fmt.Fprintf(out, "\033[1;%dr", height-1)
	fmt.Fprintf(out, "\033[1;1H")
	fmt.Fprintf(out, "\033[s\033[%d;1H\033[K[0/%d] Starting...\033[u", height, total)
	return bar
}

// Update records one completed input and redraws the bar
func (b *statusBar) Update(url string) {
	b.completed++
	if b.height == 0 {
		return
	}
	fmt.Fprintf(b.out, "\033[s\033[%d;1H\033[K[%d/%d] %s\033[u", b.height, b.completed, b.total, truncateURL(url))
}

// Close restores the full scroll region and clears the bar
func (b *statusBar) Close() {
	if b.height == 0 {
		return
	}
	fmt.Fprintf(b.out, "\033[r")
	fmt.Fprintf(b.out, "\033[%d;1H\033[K", b.height)
	fmt.Fprintf(b.out, "\033[%d;1H", b.height-1)
}

func truncateURL(url string) string {
	if len(url) <= maxDisplayURL {
		return url
	}
	return url[:maxDisplayURL-3] + "..."
}
