package tui

// Renderer draws the quota dashboard, one full frame per tick.
//
// Features:
// - Per-limit progress bars, color-coded at 50% and 80%
// - Snapshot age with a stale marker, refresh indicator
// - Inline error banner that keeps the last good data visible
// - Footer with key help, refresh interval and fetch metrics

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/compresr/glm-usage-monitor/internal/app"
	"github.com/compresr/glm-usage-monitor/internal/usage"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultWidth is used when the terminal size is unknown.
	DefaultWidth = 80

	// barWidth is the number of cells in a limit's progress bar.
	barWidth = 20

	// labelWidth pads limit labels so the bars line up.
	labelWidth = 20

	// maxDetails caps the per-model breakdown shown under a limit.
	maxDetails = 4
)

// SizeFunc reports the terminal size in cells.
type SizeFunc func() (width, height int, err error)

// =============================================================================
// RENDERER
// =============================================================================

// Renderer writes frames to a terminal. It implements app.Renderer.
type Renderer struct {
	out  io.Writer
	size SizeFunc
}

// RendererOption configures the Renderer.
type RendererOption func(*Renderer)

// WithSize sets how the renderer learns the terminal size.
func WithSize(size SizeFunc) RendererOption {
	return func(r *Renderer) {
		r.size = size
	}
}

// NewRenderer creates a renderer writing to out. When out is a terminal its
// size is queried on every frame, so a resize takes effect on the next tick.
func NewRenderer(out io.Writer, opts ...RendererOption) *Renderer {
	r := &Renderer{out: out}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.size = func() (int, int, error) { return term.GetSize(int(f.Fd())) }
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws one frame in a single write.
func (r *Renderer) Render(v app.View) error {
	width, height := DefaultWidth, 0
	if r.size != nil {
		if w, h, err := r.size(); err == nil && w > 0 {
			width, height = w, h
		}
	}

	lines := Frame(v, width)
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}

	var b strings.Builder
	b.WriteString(escHome)
	for i, line := range lines {
		b.WriteString(line)
		b.WriteString(escClearLine)
		// A newline on the bottom row would scroll the screen.
		if height > 0 && i == height-1 {
			break
		}
		// Raw mode: no implicit carriage return.
		b.WriteString("\r\n")
	}
	b.WriteString(escClearBelow)

	_, err := io.WriteString(r.out, b.String())
	return err
}

// =============================================================================
// FRAME LAYOUT
// =============================================================================

// Frame lays out the dashboard as lines no wider than width.
func Frame(v app.View, width int) []string {
	st := v.State
	var lines []string

	lines = append(lines, header(st.Snapshot), "")

	if st.Snapshot == nil {
		if st.LastError == nil {
			lines = append(lines, ColorDim+"Waiting for the first snapshot…"+ColorReset)
		} else {
			lines = append(lines, ColorDim+"No data yet."+ColorReset)
		}
	} else {
		if len(st.Snapshot.Limits) == 0 {
			lines = append(lines, ColorDim+"No quota limits reported."+ColorReset)
		}
		for _, l := range st.Snapshot.Limits {
			lines = append(lines, limitLines(l, v.Now)...)
		}
	}

	lines = append(lines, "", statusLine(v))
	if st.LastError != nil {
		lines = append(lines, errorLine(st.LastError, v.Now))
	}
	lines = append(lines, "", footer(v))

	for i, line := range lines {
		lines[i] = fitWidth(line, width)
	}
	return lines
}

func header(s *usage.Snapshot) string {
	title := ColorBold + ColorCyan + "GLM Coding Plan" + ColorReset
	if s == nil {
		return title
	}
	return fmt.Sprintf("%s  %s%s%s  %s%s%s", title, ColorBold, formatPlan(s.Plan), ColorReset, ColorDim, s.Region, ColorReset)
}

func limitLines(l usage.Limit, now time.Time) []string {
	label := l.Kind.Label()
	if w := l.Window(); w != "" {
		label += " (" + w + ")"
	}

	parts := []string{fmt.Sprintf("%-*s %s %5.1f%%", labelWidth, label, renderMiniBar(l.Percentage, barWidth), l.Percentage)}
	if l.HasCounts {
		parts = append(parts, fmt.Sprintf("%s / %s used", formatCount(l.Used), formatCount(l.Total)))
	}
	if left := l.ResetsIn(now); left > 0 {
		parts = append(parts, "resets in "+formatRemaining(left))
	}
	lines := []string{strings.Join(parts, "  ")}

	if len(l.Details) > 0 {
		details := make([]string, 0, maxDetails)
		for i, d := range l.Details {
			if i == maxDetails {
				details = append(details, fmt.Sprintf("+%d more", len(l.Details)-maxDetails))
				break
			}
			details = append(details, fmt.Sprintf("%s %s", d.Model, formatCount(d.Usage)))
		}
		lines = append(lines, fmt.Sprintf("%s  %s%s", strings.Repeat(" ", labelWidth), ColorDim+strings.Join(details, " · "), ColorReset))
	}
	return lines
}

func statusLine(v app.View) string {
	st := v.State
	var parts []string

	switch {
	case st.Snapshot != nil:
		updated := "updated " + formatDuration(st.Snapshot.Age(v.Now))
		if st.Snapshot.IsStale(v.Now, st.RefreshInterval) {
			updated += " " + ColorYellow + "[stale]" + ColorReset
		}
		parts = append(parts, updated)
	case st.LastAttempt.IsZero():
		parts = append(parts, "not fetched yet")
	default:
		parts = append(parts, "no successful fetch")
	}
	if st.LastError != nil && !st.LastSuccess.IsZero() {
		parts = append(parts, "last ok "+formatDuration(v.Now.Sub(st.LastSuccess)))
	}

	if v.Refreshing() {
		parts = append(parts, ColorCyan+"refreshing…"+ColorReset)
	}
	return strings.Join(parts, " · ")
}

func errorLine(f *app.Failure, now time.Time) string {
	age := ""
	if !f.At.IsZero() {
		age = fmt.Sprintf("  %s(%s)%s", ColorDim, formatDuration(now.Sub(f.At)), ColorReset)
	}
	return fmt.Sprintf("%s✗ %s%s%s", ColorRed, f.String(), ColorReset, age)
}

func footer(v app.View) string {
	m := v.Metrics
	parts := []string{
		"q quit",
		"r refresh",
		"every " + formatInterval(v.State.RefreshInterval),
	}
	if m.Attempts > 0 {
		stats := fmt.Sprintf("%d fetches, %d ok", m.Attempts, m.Successes)
		if failed := m.Failures.Total(); failed > 0 {
			stats += fmt.Sprintf(", %d failed", failed)
		}
		parts = append(parts, stats)
	}
	if m.LastLatency > 0 {
		parts = append(parts, "last "+m.LastLatency.Round(time.Millisecond).String())
	}
	return ColorDim + strings.Join(parts, " · ") + ColorReset
}

// =============================================================================
// PROGRESS BAR
// =============================================================================

// renderMiniBar returns a compact bar without brackets for inline display.
// width is the number of bar characters.
func renderMiniBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	barColor := ColorGreen
	if percent >= 80 {
		barColor = ColorRed
	} else if percent >= 50 {
		barColor = ColorYellow
	}

	return barColor + strings.Repeat("█", filled) + ColorReset + ColorDim + strings.Repeat("░", empty) + ColorReset
}

// =============================================================================
// HELPERS
// =============================================================================

func formatPlan(plan string) string {
	switch strings.ToLower(plan) {
	case "":
		return "Unknown plan"
	case "lite":
		return "Lite"
	case "pro":
		return "Pro"
	case "max":
		return "Max"
	default:
		return plan
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

// formatRemaining renders a countdown such as "2h13m" or "12d3h".
func formatRemaining(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// formatInterval renders the refresh interval compactly ("5m", "90s").
func formatInterval(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func formatCount(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 10_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
