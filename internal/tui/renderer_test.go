package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/glm-usage-monitor/internal/app"
	"github.com/compresr/glm-usage-monitor/internal/monitoring"
	"github.com/compresr/glm-usage-monitor/internal/usage"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() *usage.Snapshot {
	return &usage.Snapshot{
		Plan:      "pro",
		Region:    "global",
		FetchedAt: now.Add(-3 * time.Minute),
		Limits: []usage.Limit{
			{
				Kind:       usage.LimitTokens,
				Percentage: 42,
				Unit:       usage.UnitHour,
				Number:     5,
				ResetsAt:   now.Add(2*time.Hour + 13*time.Minute),
			},
			{
				Kind:       usage.LimitTime,
				Percentage: 25,
				HasCounts:  true,
				Used:       250,
				Total:      1000,
				Unit:       usage.UnitMonth,
				Number:     1,
				Details:    []usage.ModelUsage{{Model: "search-prime", Usage: 200}, {Model: "web-reader", Usage: 50}},
			},
		},
	}
}

func plain(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(stripANSI(l))
		b.WriteString("\n")
	}
	return b.String()
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\033' {
			i = skipEscape(s, i)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func TestFrame_WithSnapshot(t *testing.T) {
	st := app.NewState(5*time.Minute, 20*time.Second)
	st.Snapshot = sampleSnapshot()
	v := app.View{
		State:   st,
		Now:     now,
		Metrics: monitoring.Summary{Attempts: 3, Successes: 2, Failures: monitoring.FailureStats{Timeout: 1}, LastLatency: 120 * time.Millisecond},
	}

	out := plain(Frame(v, 120))

	assert.Contains(t, out, "GLM Coding Plan  Pro  global")
	assert.Contains(t, out, "Prompt tokens (5h)")
	assert.Contains(t, out, " 42.0%")
	assert.Contains(t, out, "resets in 2h13m")
	assert.Contains(t, out, "Tool calls (1mo)")
	assert.Contains(t, out, "250 / 1000 used")
	assert.Contains(t, out, "search-prime 200 · web-reader 50")
	assert.Contains(t, out, "updated 3m ago")
	assert.NotContains(t, out, "[stale]")
	assert.NotContains(t, out, "refreshing")
	assert.NotContains(t, out, "last ok", "only shown next to an error")
	assert.Contains(t, out, "q quit · r refresh · every 5m · 3 fetches, 2 ok, 1 failed · last 120ms")
}

func TestFrame_ErrorKeepsLastSnapshot(t *testing.T) {
	st := app.NewState(time.Minute, 20*time.Second)
	st.Snapshot = sampleSnapshot()
	st.InFlight = true
	st.LastError = &app.Failure{Kind: usage.KindStatus, Code: 401, Message: "invalid API key", At: now.Add(-2 * time.Minute)}
	st.LastSuccess = now.Add(-4 * time.Minute)

	out := plain(Frame(app.View{State: st, Now: now}, 120))

	assert.Contains(t, out, "Prompt tokens (5h)", "last good data stays visible")
	assert.Contains(t, out, "[stale]")
	assert.Contains(t, out, "refreshing…")
	assert.Contains(t, out, "✗ status (401): invalid API key  (2m ago)")
	assert.Contains(t, out, "last ok 4m ago")
}

func TestFrame_NoSnapshot(t *testing.T) {
	st := app.NewState(time.Minute, 20*time.Second)
	out := plain(Frame(app.View{State: st, Now: now}, 80))
	assert.Contains(t, out, "Waiting for the first snapshot")
	assert.Contains(t, out, "not fetched yet")

	st.LastAttempt = now
	st.LastError = &app.Failure{Kind: usage.KindTimeout, Message: "no response within 20s", At: now}
	out = plain(Frame(app.View{State: st, Now: now}, 80))
	assert.Contains(t, out, "No data yet.")
	assert.Contains(t, out, "no successful fetch")
	assert.NotContains(t, out, "last ok")
	assert.Contains(t, out, "✗ timeout: no response within 20s  (just now)")
}

func TestFrame_FitsWidth(t *testing.T) {
	st := app.NewState(time.Minute, 20*time.Second)
	st.Snapshot = sampleSnapshot()

	for _, line := range Frame(app.View{State: st, Now: now}, 30) {
		assert.LessOrEqual(t, visibleWidth(line), 30, "line %q", stripANSI(line))
	}
}

func TestRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithSize(func() (int, int, error) { return 100, 5, nil }))

	st := app.NewState(time.Minute, 20*time.Second)
	st.Snapshot = sampleSnapshot()
	require.NoError(t, r.Render(app.View{State: st, Now: now}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, escHome))
	assert.True(t, strings.HasSuffix(out, escClearBelow))
	assert.Equal(t, 5, strings.Count(out, escClearLine), "frame clipped to terminal height")
	assert.Equal(t, 4, strings.Count(out, "\r\n"), "no newline on the bottom row")
	assert.True(t, strings.HasSuffix(out, escClearLine+escClearBelow))
}

func TestRenderer_TallTerminalKeepsNewlines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithSize(func() (int, int, error) { return 100, 50, nil }))

	st := app.NewState(time.Minute, 20*time.Second)
	st.Snapshot = sampleSnapshot()
	require.NoError(t, r.Render(app.View{State: st, Now: now}))

	lines := Frame(app.View{State: st, Now: now}, 100)
	out := buf.String()
	assert.Equal(t, len(lines), strings.Count(out, "\r\n"))
	assert.True(t, strings.HasSuffix(out, "\r\n"+escClearBelow))
}

func TestRenderer_DefaultWidthOnSizeError(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithSize(func() (int, int, error) { return 0, 0, errors.New("no tty") }))

	require.NoError(t, r.Render(app.View{State: app.NewState(time.Minute, time.Second), Now: now}))
	assert.Contains(t, buf.String(), "GLM Coding Plan")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRenderer_WriteError(t *testing.T) {
	r := NewRenderer(failingWriter{})
	err := r.Render(app.View{State: app.NewState(time.Minute, time.Second), Now: now})
	assert.EqualError(t, err, "broken pipe")
}

func TestRenderMiniBar(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		color   string
		filled  int
	}{
		{"empty", 0, ColorGreen, 0},
		{"low", 25, ColorGreen, 5},
		{"warning", 50, ColorYellow, 10},
		{"critical", 85, ColorRed, 17},
		{"over", 150, ColorRed, 20},
		{"negative", -5, ColorGreen, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderMiniBar(tt.percent, 20)
			assert.True(t, strings.HasPrefix(bar, tt.color))
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, 20-tt.filled, strings.Count(bar, "░"))
			assert.Equal(t, 20, visibleWidth(bar))
		})
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "just now", formatDuration(30*time.Second))
	assert.Equal(t, "5m ago", formatDuration(5*time.Minute))
	assert.Equal(t, "2h ago", formatDuration(2*time.Hour+10*time.Minute))

	assert.Equal(t, "<1m", formatRemaining(30*time.Second))
	assert.Equal(t, "45m", formatRemaining(45*time.Minute))
	assert.Equal(t, "2h05m", formatRemaining(2*time.Hour+5*time.Minute))
	assert.Equal(t, "12d3h", formatRemaining(12*24*time.Hour+3*time.Hour))

	assert.Equal(t, "5m", formatInterval(5*time.Minute))
	assert.Equal(t, "90s", formatInterval(90*time.Second))
	assert.Equal(t, "1s", formatInterval(time.Second))

	assert.Equal(t, "950", formatCount(950))
	assert.Equal(t, "1000", formatCount(1000))
	assert.Equal(t, "12.3k", formatCount(12_345))
	assert.Equal(t, "4.5M", formatCount(4_500_000))

	assert.Equal(t, "Pro", formatPlan("PRO"))
	assert.Equal(t, "Unknown plan", formatPlan(""))
	assert.Equal(t, "enterprise", formatPlan("enterprise"))
}

func TestFitWidth(t *testing.T) {
	assert.Equal(t, "hello", fitWidth("hello", 10))
	assert.Equal(t, "hell…"+ColorReset, fitWidth("hello world", 5))

	colored := ColorRed + "abcdef" + ColorReset
	cut := fitWidth(colored, 4)
	assert.Equal(t, 4, visibleWidth(cut))
	assert.True(t, strings.HasPrefix(cut, ColorRed))
	assert.Equal(t, "", fitWidth("abc", 0))
}
