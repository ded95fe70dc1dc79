package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// tuiSend delivers a message to the TUI when one is running.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// TUI message types
type StatusMsg struct {
	Status  Status
	Message string
}
type LevelMsg struct{ Level float64 }
type TranscriptMsg struct {
	Text   string
	Copied bool // delivered via clipboard only, no paste
}
type WarningMsg struct {
	Text  string
	Until time.Time
}
type ErrorMsg struct {
	Text      string
	Retryable bool
}
type ModeLineMsg struct{ Text string }   // provider/model info
type DeviceLineMsg struct{ Text string } // microphone device name
type tuiTickMsg time.Time

type tuiModel struct {
	status        Status
	frame         int
	level         float64
	peakLevel     float64
	recordingFrom time.Time
	width, height int
	modeLine      string
	deviceLine    string
	lastText      string
	lastCopied    bool
	msgCount      int
	warning       string
	warningUntil  time.Time
	errText       string
	retryable     bool
	onRetry       func()
	onToggle      func()
	onCancel      func()
}

func NewTUIProgram(onToggle, onCancel, onRetry func()) *tea.Program {
	m := tuiModel{onToggle: onToggle, onCancel: onCancel, onRetry: onRetry}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tuiTickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			if m.onToggle != nil {
				m.onToggle()
			}
		case "esc":
			if m.onCancel != nil {
				m.onCancel()
			}
		case "r":
			if m.retryable && m.onRetry != nil {
				m.onRetry()
			}
		}

	case tuiTickMsg:
		m.frame++
		if m.warning != "" && time.Now().After(m.warningUntil) {
			m.warning = ""
		}
		return m, tuiTick()

	case StatusMsg:
		prev := m.status
		m.status = msg.Status
		if msg.Status == StatusRecording {
			m.recordingFrom = time.Now()
			m.level = 0
			m.peakLevel = 0
			m.errText = ""
			m.retryable = false
		}
		if msg.Status == StatusError {
			m.errText = msg.Message
		}
		if prev == StatusError && msg.Status != StatusError {
			m.errText = ""
		}

	case LevelMsg:
		if m.status == StatusRecording {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case TranscriptMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.lastCopied = msg.Copied

	case WarningMsg:
		m.warning = msg.Text
		m.warningUntil = msg.Until

	case ErrorMsg:
		m.errText = msg.Text
		m.retryable = msg.Retryable

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleCopied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleBar     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	styleBarHot  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const levelBarWidth = 30

func renderLevelBar(level, peak float64) string {
	filled := int(level * levelBarWidth)
	if filled > levelBarWidth {
		filled = levelBarWidth
	}
	peakPos := int(peak * levelBarWidth)
	if peakPos >= levelBarWidth {
		peakPos = levelBarWidth - 1
	}

	var b strings.Builder
	b.WriteString(styleIdle.Render("["))
	for i := 0; i < levelBarWidth; i++ {
		switch {
		case i < filled && i >= levelBarWidth*3/4:
			b.WriteString(styleBarHot.Render("█"))
		case i < filled:
			b.WriteString(styleBar.Render("█"))
		case i == peakPos && peak > 0:
			b.WriteString(styleDim.Render("|"))
		default:
			b.WriteString(" ")
		}
	}
	b.WriteString(styleIdle.Render("]"))
	return b.String()
}

func (m tuiModel) statusLine() string {
	switch m.status {
	case StatusRecording:
		elapsed := time.Since(m.recordingFrom).Seconds()
		line := styleRec.Render(fmt.Sprintf("● REC %.1fs", elapsed))
		// voice warning after a second of near-silence
		if elapsed > 1.0 && m.peakLevel < 0.02 {
			line += styleWarn.Render("  ⚠ no voice detected")
		}
		return line
	case StatusProcessing:
		return styleBusy.Render(spinnerFrame(m.frame) + " processing")
	case StatusTranscribing:
		return styleBusy.Render(spinnerFrame(m.frame) + " transcribing")
	case StatusCleaning:
		return styleBusy.Render(spinnerFrame(m.frame) + " cleaning")
	case StatusError:
		return styleErr.Render("✗ " + m.errText)
	}
	return styleIdle.Render("○ STANDBY")
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinnerFrame(frame int) string {
	return spinnerFrames[frame%len(spinnerFrames)]
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, " "+m.statusLine())

	if m.status == StatusRecording {
		lines = append(lines, " "+renderLevelBar(m.level, m.peakLevel))
	} else {
		lines = append(lines, "")
	}

	if m.warning != "" {
		lines = append(lines, " "+styleWarn.Render("⚠ "+m.warning))
	} else {
		lines = append(lines, "")
	}

	if m.modeLine != "" {
		lines = append(lines, " "+styleDim.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, " "+styleIdle.Render(m.deviceLine))
	}

	lines = append(lines, "")
	wrapWidth := m.width - 4
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if m.lastText != "" {
		title := styleDim.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount))
		lines = append(lines, " "+title)
		wrapped := wrapText(m.lastText, wrapWidth)
		for i, line := range wrapped {
			rendered := " " + styleText.Render(line)
			if i == len(wrapped)-1 && m.lastCopied {
				rendered += " " + styleCopied.Render("[✓ copied]")
			}
			lines = append(lines, rendered)
		}
	} else {
		lines = append(lines, " "+styleIdle.Render("No transcriptions yet"))
	}

	if m.retryable {
		lines = append(lines, "")
		lines = append(lines, " "+styleHelpKey.Render("r")+styleHelp.Render(" to retry last recording"))
	}

	lines = append(lines, "")
	help := " " + styleHelpKey.Render("Ctrl+Shift+Space") + styleHelp.Render(" to record  ") +
		styleHelpKey.Render("esc") + styleHelp.Render(" cancel  ") +
		styleHelpKey.Render("q") + styleHelp.Render(" quit")
	lines = append(lines, help)
	lines = append(lines, " "+styleHelp.Render("murmur "+version))

	out := strings.Join(lines, "\n")
	return lipgloss.NewStyle().Width(m.width).Height(m.height).Render(out)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// TUISink decorates a delivery sink with the Bubble Tea display. Delivery
// goes to the inner sink; every event is also marshaled onto the render
// loop with tuiSend, so the sink works before the program is published and
// the coordinator can be built first.
type TUISink struct {
	inner Sink
}

func NewTUISink(inner Sink) *TUISink {
	return &TUISink{inner: inner}
}

func (s *TUISink) StatusChanged(status Status, message string) {
	s.inner.StatusChanged(status, message)
	tuiSend(StatusMsg{Status: status, Message: message})
}

func (s *TUISink) LevelChanged(level float64) {
	s.inner.LevelChanged(level)
	tuiSend(LevelMsg{Level: level})
}

func (s *TUISink) InsertText(text string) error {
	if err := s.inner.InsertText(text); err != nil {
		return err
	}
	tuiSend(TranscriptMsg{Text: text})
	return nil
}

func (s *TUISink) CopyText(text string) error {
	if err := s.inner.CopyText(text); err != nil {
		return err
	}
	tuiSend(TranscriptMsg{Text: text, Copied: true})
	return nil
}

func (s *TUISink) ShowWarning(message string, duration time.Duration) {
	s.inner.ShowWarning(message, duration)
	tuiSend(WarningMsg{Text: message, Until: time.Now().Add(duration)})
}

func (s *TUISink) ShowErrorWithRetry(message string) {
	s.inner.ShowErrorWithRetry(message)
	tuiSend(ErrorMsg{Text: message, Retryable: true})
}
