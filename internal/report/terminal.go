// Package report renders review results for terminals, HTML and tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jfowler-cloud/scaffold-ai/internal/core"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
)

// ANSI colour codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

const (
	IconSuccess  = "✓"
	IconWarning  = "⚠"
	IconError    = "✗"
	IconInfo     = "ℹ"
	IconCritical = "☠"
	IconShield   = "🛡"
)

// Terminal prints a coloured review report.
type Terminal struct {
	w         io.Writer
	color     bool
	startTime time.Time
}

func NewTerminal(w io.Writer, color bool) *Terminal {
	return &Terminal{w: w, color: color, startTime: time.Now()}
}

func (t *Terminal) c(code string) string {
	if !t.color {
		return ""
	}
	return code
}

func (t *Terminal) PrintBanner() {
	fmt.Fprintf(t.w, "%s%s scaffold-ai security review%s\n", t.c(ColorCyan+ColorBold), IconShield, t.c(ColorReset))
}

func (t *Terminal) PrintSection(title string) {
	line := strings.Repeat("─", 65)
	fmt.Fprintf(t.w, "\n%s┌%s┐%s\n", t.c(ColorBlue), line, t.c(ColorReset))
	fmt.Fprintf(t.w, "%s│ %s%-63s%s │%s\n", t.c(ColorBlue), t.c(ColorBold+ColorWhite), title, t.c(ColorReset+ColorBlue), t.c(ColorReset))
	fmt.Fprintf(t.w, "%s└%s┘%s\n\n", t.c(ColorBlue), line, t.c(ColorReset))
}

// PrintReview prints the gate verdict, the level counts and each finding.
func (t *Terminal) PrintReview(r *security.Review) {
	t.PrintSection("Verdict")
	if r.Gate() {
		fmt.Fprintf(t.w, "  %s %sPASSED%s  score %d/100\n", IconSuccess, t.c(ColorGreen+ColorBold), t.c(ColorReset), r.Score)
	} else {
		score := 0
		if r != nil {
			score = r.Score
		}
		fmt.Fprintf(t.w, "  %s %sFAILED%s  score %d/100\n", IconError, t.c(ColorRed+ColorBold), t.c(ColorReset), score)
	}

	findings := r.Findings()
	counts := core.CountLevels(findings)
	fmt.Fprintf(t.w, "  %s Critical: %s%-3d%s  %s High: %s%-3d%s  %s Medium: %s%-3d%s  %s Info: %s%-3d%s\n",
		IconCritical, t.c(ColorRed+ColorBold), counts["critical"], t.c(ColorReset),
		IconError, t.c(ColorRed), counts["high"], t.c(ColorReset),
		IconWarning, t.c(ColorYellow), counts["medium"], t.c(ColorReset),
		IconInfo, t.c(ColorCyan), counts["info"], t.c(ColorReset))

	if len(findings) == 0 {
		fmt.Fprintf(t.w, "\n  %s %sNo security findings.%s\n", IconShield, t.c(ColorGreen), t.c(ColorReset))
		return
	}

	t.PrintSection("Findings")
	for i, f := range findings {
		icon, color := levelStyle(f.Level)
		fmt.Fprintf(t.w, "%s%s (%d/%d) [%s]%s %s\n",
			t.c(ColorBold), icon, i+1, len(findings), f.Source, t.c(ColorReset), f.Description)
		fmt.Fprintf(t.w, "  %sLevel:%s %s%s%s\n", t.c(ColorDim), t.c(ColorReset), t.c(color), f.Level, t.c(ColorReset))
		if f.Advice != "" {
			fmt.Fprintf(t.w, "  %sAdvice:%s %s%s%s\n", t.c(ColorDim), t.c(ColorReset), t.c(ColorYellow), f.Advice, t.c(ColorReset))
		}
		fmt.Fprintln(t.w)
	}

	if r != nil && len(r.CompliantServices) > 0 {
		fmt.Fprintf(t.w, "  %sCompliant:%s %s\n", t.c(ColorDim), t.c(ColorReset), strings.Join(r.CompliantServices, ", "))
	}
}

// PrintChanges lists the auto-fix change log.
func (t *Terminal) PrintChanges(changes []string) {
	t.PrintSection("Applied fixes")
	if len(changes) == 0 {
		fmt.Fprintf(t.w, "  %s Nothing to change.\n", IconSuccess)
		return
	}
	for _, ch := range changes {
		fmt.Fprintf(t.w, "  %s%s%s %s\n", t.c(ColorGreen), IconSuccess, t.c(ColorReset), ch)
	}
}

func levelStyle(level string) (string, string) {
	switch strings.ToLower(level) {
	case "critical":
		return IconCritical, ColorRed + ColorBold
	case "high":
		return IconError, ColorRed
	case "medium":
		return IconWarning, ColorYellow
	case "low":
		return IconInfo, ColorCyan
	default:
		return IconInfo, ColorWhite
	}
}

func (t *Terminal) PrintSummary(nodes int) {
	t.PrintSection("Summary")
	fmt.Fprintf(t.w, "  %sStarted:%s  %s\n", t.c(ColorDim), t.c(ColorReset), t.startTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(t.w, "  %sElapsed:%s  %s%.2fs%s\n", t.c(ColorDim), t.c(ColorReset), t.c(ColorGreen), time.Since(t.startTime).Seconds(), t.c(ColorReset))
	fmt.Fprintf(t.w, "  %sNodes:%s    %d\n\n", t.c(ColorDim), t.c(ColorReset), nodes)
}
