// Package recognition defines the contract between a transcript producer
// and the prompter session.
package recognition

import "context"

// Callback receives transcript events. Interim text is the cumulative
// restatement of the utterance so far. Each utterance gets exactly one
// final. Utterance indexes never decrease within one Start.
type Callback interface {
	// OnPartial is called for each interim transcript.
	OnPartial(utterance int, text string)

	// OnFinal is called once when recognition commits the utterance.
	OnFinal(utterance int, text string, confidence float64)

	// OnError is called when the source fails and the current utterance
	// can no longer be trusted.
	OnError(err error)
}

// Source delivers transcript events to a Callback.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Start begins delivering events to cb. It returns once delivery is
	// under way; events stop when ctx is done or Close is called.
	Start(ctx context.Context, cb Callback) error

	// Close stops delivery and releases resources.
	Close() error
}
