package presenter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/sugarscope/sugarscope/internal/domain"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorOrange = lipgloss.Color("#FFB86C")
	colorGray   = lipgloss.Color("#6272A4")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Align(lipgloss.Center)

	todayStyle  = lipgloss.NewStyle().Bold(true)
	limitStyle  = lipgloss.NewStyle().Foreground(colorGray)
	buttonStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 1)
)

// TerminalScreen draws alerts as a bordered card
type TerminalScreen struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalScreen(out io.Writer) *TerminalScreen {
	return &TerminalScreen{out: out}
}

// Show implements Screen
func (s *TerminalScreen) Show(_ context.Context, v AlertView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out, Render(v))
	return err
}

// Render returns the styled card for v
func Render(v AlertView) string {
	color, icon := colorOrange, "⚡"
	if v.Alert.Level == domain.LevelExceeded {
		color, icon = colorRed, "▲"
	}
	headline := lipgloss.NewStyle().Bold(true).Foreground(color).Render(icon + " " + v.Headline)

	body := lipgloss.JoinVertical(lipgloss.Center,
		headline,
		todayStyle.Render(v.Today),
		limitStyle.Render(v.Limit),
		"",
		buttonStyle.Render(v.Action),
	)
	return cardStyle.BorderForeground(color).Render(body)
}

// TerminalHaptics rings the terminal bell: twice for failure, once otherwise
type TerminalHaptics struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalHaptics(out io.Writer) *TerminalHaptics {
	return &TerminalHaptics{out: out}
}

// Play implements Haptics
func (h *TerminalHaptics) Play(_ context.Context, p HapticPattern) error {
	n := 1
	if p == HapticFailure {
		n = 2
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, strings.Repeat("\a", n))
	return err
}
