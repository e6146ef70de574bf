package services

import (
	"errors"
	"fmt"
)

// Error conditions surfaced by the collector. Parse failures carry a fatal
// flag: fatal errors abort the pass without persisting anything from the
// page, retryable ones are retried at the same offset after a backoff.
var (
	// ErrCollectionComplete is the distinguished non-fatal signal returned
	// by Load when the pass has reached the end of history or looped back
	// onto a previous pass. It means "nothing more to do, try again later",
	// not that something is broken.
	ErrCollectionComplete = errors.New("listing collection complete")

	// ErrSessionConflict means another loader has taken over the persisted
	// session. The losing loader must abort without touching progress.
	ErrSessionConflict = errors.New("load was called elsewhere")

	// ErrRepetitionGuard trips when the last requests were all identical,
	// which indicates an upstream contract change rather than a transient
	// fault.
	ErrRepetitionGuard = errors.New("identical requests repeating")

	ErrLanguageNotConfigured = errors.New("account language not configured")
	ErrCurrencyNotConfigured = errors.New("wallet currency not configured")
)

// ParseError classifies a page that could not be parsed.
type ParseError struct {
	Fatal   bool
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func fatalf(format string, args ...any) *ParseError {
	return &ParseError{Fatal: true, Message: fmt.Sprintf(format, args...)}
}

func retryablef(format string, args ...any) *ParseError {
	return &ParseError{Fatal: false, Message: fmt.Sprintf(format, args...)}
}

// AssetMissingError reports a history row whose asset triple is absent
// from the page's asset map.
type AssetMissingError struct {
	AppID     string
	ContextID string
	AssetID   string
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("asset %s/%s/%s missing from page asset map", e.AppID, e.ContextID, e.AssetID)
}

// IsFatal reports whether err should terminate the pass instead of being
// retried. Unclassified errors (transport failures and the like) are
// treated as retryable.
func IsFatal(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Fatal
	}
	if errors.Is(err, ErrSessionConflict) || errors.Is(err, ErrRepetitionGuard) ||
		errors.Is(err, ErrLanguageNotConfigured) || errors.Is(err, ErrCurrencyNotConfigured) {
		return true
	}
	return false
}
