package recount

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const barWidth = 28

// progressBar redraws a single status line on a terminal.
type progressBar struct {
	w       io.Writer
	total   int
	current int
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progressBar) Start(total int) {
	p.total = total
	p.current = 0
	p.draw()
}

func (p *progressBar) Advance() {
	p.current++
	p.draw()
}

func (p *progressBar) Finish() {
	p.current = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *progressBar) draw() {
	filled := barWidth
	percent := 100
	if p.total > 0 {
		filled = p.current * barWidth / p.total
		percent = p.current * 100 / p.total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Fprintf(p.w, "\r %d/%d [%s] %3d%%", p.current, p.total, bar, percent)
}
