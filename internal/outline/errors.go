package outline

import "errors"

var (
	// ErrUnreadable is returned when a document cannot be opened or sampled.
	// It is fatal for that document only.
	ErrUnreadable = errors.New("document unreadable")

	// ErrNoBoundary means no outline boundary was found in the front matter.
	ErrNoBoundary = errors.New("no outline boundary found")

	// ErrTooFewEntries means a tier produced fewer than MinEntries entries.
	ErrTooFewEntries = errors.New("too few outline entries")

	// ErrTierTimeout means a tier's inference call exceeded its deadline.
	ErrTierTimeout = errors.New("tier timed out")

	// ErrNotFound is returned by repositories for unknown document ids.
	ErrNotFound = errors.New("document not found")
)
