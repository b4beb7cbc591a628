// Package presenter defines the Presenter port: the UI surface the
// Session Orchestrator drives without knowing whether it's a browser DOM or,
// as here, a terminal. The capability list is explicit: status text,
// progress, error surface, download offer, approval prompt.
package presenter

import "time"

// Presenter is implemented by whatever renders the transfer's lifecycle to
// a human. internal/presenter/cliterm provides the terminal implementation.
type Presenter interface {
	// Status reports a human-readable lifecycle update ("Waiting for
	// peer...", "Connected", "Negotiating...").
	Status(text string)

	// ShareLink surfaces the room link a sender should hand to the
	// receiver.
	ShareLink(link string)

	// AwaitApproval asks the human whether to admit a pending receiver,
	// blocking until they answer.
	AwaitApproval(peerID string) bool

	// OfferFile tells the receiver what is about to arrive and asks for
	// consent before the transfer starts.
	OfferFile(name string, size uint64, mimeType string) bool

	// Progress reports cumulative bytes transferred against total.
	Progress(transferred, total uint64, speed float64, eta time.Duration)

	// Complete reports a successful transfer with summary figures.
	Complete(name string, size uint64, duration time.Duration, avgSpeed float64)

	// Error surfaces a terminal failure for the current transfer.
	Error(err error)
}
