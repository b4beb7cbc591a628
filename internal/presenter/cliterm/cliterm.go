// Package cliterm implements the Presenter port (internal/presenter) as a
// terminal UI, built on the bubbletea/lipgloss/go-pretty stack for progress
// and summary rendering.
package cliterm

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relaybeam/relaybeam/internal/ui"
	"github.com/relaybeam/relaybeam/internal/utils"
)

// Terminal is the CLI realization of presenter.Presenter.
type Terminal struct {
	fileName string
	program  *tea.Program
	start    time.Time
	reader   *bufio.Reader
}

// New creates a terminal presenter for a transfer of the given file.
func New(fileName string, fileSize int64) *Terminal {
	model := ui.NewProgressModel(fileName, fileSize)
	return &Terminal{
		fileName: fileName,
		program:  tea.NewProgram(model),
		reader:   bufio.NewReader(os.Stdin),
	}
}

// SetFile (re)points the progress display at a file whose name/size weren't
// known at construction time, as on the receive path where they only arrive
// in the FileMetadata frame. Safe to call after Run has started: it updates
// the running program in place rather than replacing it.
func (t *Terminal) SetFile(name string, size int64) {
	t.fileName = name
	if t.program != nil {
		t.program.Send(ui.FileInfoMsg{Name: name, Total: size})
	}
}

func (t *Terminal) Status(text string) {
	fmt.Printf("%s %s\n", ui.IconInfo, text)
}

func (t *Terminal) ShareLink(link string) {
	fmt.Printf("\n%s Share this link with the receiver:\n\n  %s\n\n", ui.IconLink, ui.BoldStyle.Render(link))
}

func (t *Terminal) AwaitApproval(peerID string) bool {
	fmt.Printf("\n%s Peer %s wants to join. Accept? [Y/n] ", ui.IconPeer, peerID)
	return t.readYes()
}

func (t *Terminal) OfferFile(name string, size uint64, mimeType string) bool {
	ui.RenderFileInfo(ui.FileInfoRow{Name: name, Size: utils.FormatSize(int64(size)), Type: mimeType})
	fmt.Print("\nDo you want to receive this file? [Y/n] ")
	accept := t.readYes()
	if accept {
		t.SetFile(name, int64(size))
	}
	return accept
}

func (t *Terminal) readYes() bool {
	line, _ := t.reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line != "n" && line != "no"
}

// Run starts the bubbletea progress program; it blocks until Complete or
// Error sends the program a quit message. Call this in its own goroutine or
// after the transfer has been kicked off in another one.
func (t *Terminal) Run() error {
	t.start = time.Now()
	_, err := t.program.Run()
	return err
}

func (t *Terminal) Progress(transferred, total uint64, speed float64, eta time.Duration) {
	if t.program != nil {
		t.program.Send(ui.ProgressMsg{Current: int64(transferred), Speed: speed, ETA: eta})
	}
}

func (t *Terminal) Complete(name string, size uint64, duration time.Duration, avgSpeed float64) {
	if t.program != nil {
		t.program.Send(ui.ProgressCompleteMsg{})
	}
	ui.RenderTransferSummary(ui.TransferSummary{
		Status:   ui.IconSuccess + " Complete",
		File:     name,
		Size:     utils.FormatSize(int64(size)),
		Duration: utils.FormatTimeDuration(duration),
		Speed:    utils.FormatSpeed(avgSpeed),
	})
}

func (t *Terminal) Error(err error) {
	if t.program != nil {
		t.program.Send(ui.ProgressErrorMsg{Err: err})
	}
	ui.PrintError(err.Error())
}
