package observability

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

// termMu serialises log writes with the status line so neither interleaves
// with the other's escape sequences.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

type termWriter struct{}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
func NewTermWriter() *termWriter {
	return &termWriter{}
}

func PrintBanner() {
	banner := `
   ___   ____________  ____________  ____ _      __
  / _ | / ___/ __/ _ |/_  __/ __/ / / __ \ | /| / /
 / __ |/ (_ / _// // / / / / _// /_/ /_/ / |/ |/ /
/_/ |_|\___/___/_//_/ /_/ /_/ /____|____/|__/|__/

      >> PLAN . RESOLVE . EXECUTE <<
`
	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

// StatusLine renders the one-line live status.
func StatusLine() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime).Round(time.Second)
	memMB := float64(m.Alloc) / 1024 / 1024
	role, unit, lastHB := GetStatus()

	pulse, pulseColor := "OFFLINE", colorNeonMag
	switch delta := time.Since(lastHB); {
	case delta < 40*time.Second:
		pulse, pulseColor = "HEALTHY", colorNeonCyan
	case delta < 90*time.Second:
		pulse, pulseColor = "LAGGING", colorPurple
	}

	if unit == "" {
		unit = "waiting..."
	}
	if len(unit) > 25 {
		unit = unit[:22] + "..."
	}

	return fmt.Sprintf("%s[%s] %s%-8s%s | %-12s %-25s | up %v | %.1fMB",
		colorReset, lastHB.Format("15:04:05"),
		pulseColor, pulse, colorReset,
		role, unit, uptime, memMB)
}

// PrintLiveStatus redraws the status line in place on a terminal.
func PrintLiveStatus() {
	line := StatusLine()
	termMu.Lock()
	fmt.Printf("\033[s\033[1;1H\033[K%s\033[u", line)
	termMu.Unlock()
}
