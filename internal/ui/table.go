package ui

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TransferSummary is the set of figures shown once a transfer finishes.
type TransferSummary struct {
	Status    string
	File      string
	Size      string
	Duration  string
	Speed     string
}

// RenderTransferSummary prints the post-transfer stats table, the terminal
// realization of the Presenter's completion surface.
func RenderTransferSummary(s TransferSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Status", "File", "Size", "Duration", "Speed"})
	t.AppendRow(table.Row{s.Status, s.File, s.Size, s.Duration, s.Speed})
	t.Render()
}

// FileInfoRow is one row of a pre-flight "about to send" listing.
type FileInfoRow struct {
	Name string
	Size string
	Type string
}

// RenderFileInfo prints the file the user is about to send or receive.
func RenderFileInfo(row FileInfoRow) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Size", "Type"})
	t.AppendRow(table.Row{row.Name, row.Size, row.Type})
	t.Render()
}
