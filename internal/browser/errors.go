package browser

import (
	"github.com/pkg/errors"
)

var (
	// ErrSessionClosed is returned by every command issued after Close.
	ErrSessionClosed = errors.New("browser session is closed")

	// ErrStaleListing is returned to the issuer of a fetch whose result was
	// superseded by a later fetch or a path change before it completed.
	ErrStaleListing = errors.New("listing superseded by a more recent request")

	// ErrNotConfirmed is returned when the user declines a confirmation.
	ErrNotConfirmed = errors.New("operation not confirmed")

	// ErrUploadInProgress is wrapped in a ValidationError when a second upload
	// is started while one is in flight.
	ErrUploadInProgress = errors.New("an upload is already in progress")

	// ErrUploadCancelled is returned by an upload aborted through Cancel or Close.
	ErrUploadCancelled = errors.New("upload cancelled")
)

// ValidationError is a locally detected problem, raised before any network call.
type ValidationError struct {
	Title   string
	Message string
	Err     error
}

// Error returns the message shown to the user.
func (e *ValidationError) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// NoSelectionError is returned by Resolve when nothing is selected.
type NoSelectionError struct {
	SelectFolder bool
}

// Error names the kind of entry that has to be selected.
func (e *NoSelectionError) Error() string {
	if e.SelectFolder {
		return "Cannot find any folder selected: please select a folder !"
	}
	return "Cannot find any file selected: please select a regular file !"
}

// WrongKindError is returned by Resolve when the selected entry has the wrong kind.
type WrongKindError struct {
	SelectFolder bool
}

// Error names the kind of entry that was expected.
func (e *WrongKindError) Error() string {
	if e.SelectFolder {
		return "The regular file is disallowed to be the variable value: please select a directory !"
	}
	return "The directory is disallowed to be the variable value: please select a regular file !"
}

// OperationError is a failed remote operation with the user-facing message
// already composed ("Failed to delete the file a.txt: Forbidden").
type OperationError struct {
	Title   string
	Message string
	Err     error
}

// Error returns the composed user-facing message.
func (e *OperationError) Error() string { return e.Message }

// Unwrap returns the client error that caused the failure.
func (e *OperationError) Unwrap() error { return e.Err }

// IsValidation reports whether err was detected locally, without a request.
func IsValidation(err error) bool {
	var v *ValidationError
	var ns *NoSelectionError
	var wk *WrongKindError
	return errors.As(err, &v) || errors.As(err, &ns) || errors.As(err, &wk)
}

// Title returns the heading a presentation layer shows for err.
func Title(err error) string {
	var v *ValidationError
	if errors.As(err, &v) && v.Title != "" {
		return v.Title
	}
	var op *OperationError
	if errors.As(err, &op) && op.Title != "" {
		return op.Title
	}
	return "Error"
}
