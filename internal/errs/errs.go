// Package errs defines common error variables and typed errors used across
// the application. The typed errors carry the failure class the pipeline uses
// to decide whether to retry, re-prompt or abort the run.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrPromptAborted indicates the user dismissed an interactive prompt.
	ErrPromptAborted = errors.New("prompt aborted")
	// ErrNoSearchResults indicates the search returned no selectable titles.
	ErrNoSearchResults = errors.New("no search results")
	// ErrNoStreamCaptured indicates playback produced no usable stream URL.
	ErrNoStreamCaptured = errors.New("no stream captured")
	// ErrBinaryNotFound indicates that a required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// AuthError indicates the session is not authenticated with the site.
// It invalidates any saved run state.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}

	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// InfrastructureError indicates a transient environment failure such as a
// browser that would not start or a binary missing from the host. Runs may
// be retried after one.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure during %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// CaptureError indicates a single item produced no classifiable stream.
// It is scoped to the item, not the run.
type CaptureError struct {
	Item string
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed for %s: %v", e.Item, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// DownloadError indicates all download attempts for a stream were exhausted.
type DownloadError struct {
	URL      string
	Item     string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s after %d attempts: %v", e.Item, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// MergingError indicates the mux step failed. Intermediate files are kept
// on disk so the merge can be retried by hand.
type MergingError struct {
	Output string
	Err    error
}

func (e *MergingError) Error() string {
	return fmt.Sprintf("merge failed for %s: %v", e.Output, e.Err)
}

func (e *MergingError) Unwrap() error { return e.Err }
