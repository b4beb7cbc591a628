package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/relaybeam/relaybeam/internal/utils"
)

// ProgressModel drives the single-transfer progress bar. A session moves
// exactly one file at a time, so unlike a multi-file uploader this
// model tracks one bar, not a list.
type ProgressModel struct {
	name       string
	total      int64
	current    int64
	speed      float64
	eta        time.Duration
	done       bool
	errMsg     string
	bar        progress.Model
	start      time.Time
}

// NewProgressModel creates the model for a transfer of the given file.
func NewProgressModel(name string, total int64) *ProgressModel {
	return &ProgressModel{
		name:  name,
		total: total,
		bar: progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		start: time.Now(),
	}
}

// ProgressMsg reports new cumulative bytes transferred.
type ProgressMsg struct {
	Current int64
	Speed   float64
	ETA     time.Duration
}

// FileInfoMsg (re)points the model at a file whose name/size weren't known
// at construction time, as on the receive path where they only arrive in
// the FileMetadata frame.
type FileInfoMsg struct {
	Name  string
	Total int64
}

// ProgressCompleteMsg signals the transfer finished successfully.
type ProgressCompleteMsg struct{}

// ProgressErrorMsg signals the transfer failed.
type ProgressErrorMsg struct{ Err error }

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *ProgressModel) Init() tea.Cmd {
	return tickCmd()
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case ProgressMsg:
		m.current = msg.Current
		m.speed = msg.Speed
		m.eta = msg.ETA
	case FileInfoMsg:
		m.name = msg.Name
		m.total = msg.Total
	case ProgressCompleteMsg:
		m.done = true
		return m, tea.Quit
	case ProgressErrorMsg:
		m.errMsg = msg.Err.Error()
		return m, tea.Quit
	case tickMsg:
		return m, tickCmd()
	}
	return m, nil
}

func (m *ProgressModel) View() string {
	var b strings.Builder

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total)
	}

	b.WriteString(ProgressLabelStyle.Render(m.name))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString(" ")
	b.WriteString(ProgressPercentStyle.Render(fmt.Sprintf("%3.0f%%", pct*100)))
	b.WriteString(" ")
	b.WriteString(ProgressSpeedStyle.Render(utils.FormatSpeed(m.speed)))

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(FormatError(fmt.Errorf("%s", m.errMsg)))
	} else if m.done {
		b.WriteString("\n")
		b.WriteString(SuccessStyle.Render(IconSuccess + " transfer complete"))
	}
	b.WriteString("\n")
	return b.String()
}
