package lc

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrAlreadyExists indicates init over an existing repository.
	ErrAlreadyExists = errors.New("repository already exists")

	// ErrVersion indicates a persisted file written in an unsupported format version.
	ErrVersion = errors.New("unsupported format version")

	// ErrLoad indicates a malformed or unreadable persisted file.
	ErrLoad = errors.New("cannot load persisted file")

	// ErrNotFound indicates a missing repository, branch or commit.
	ErrNotFound = errors.New("not found")

	// ErrIO indicates a copy, create or remove failure on the working tree or snapshot store.
	ErrIO = errors.New("filesystem operation failed")

	// ErrNoStagedFiles indicates a commit was requested with an empty staged set.
	ErrNoStagedFiles = errors.New("no staged files")

	// ErrCommitAborted indicates a commit stopped part way through copying staged files.
	ErrCommitAborted = errors.New("commit aborted")

	// ErrFinalized indicates a mutation was attempted on a finalized handle.
	ErrFinalized = errors.New("handle already finalized")
)

// Error describes a failed operation on a path. Kind is one of the Err* values
// above and Err is the underlying cause, if any.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	msg = fmt.Sprintf("%s: %v", msg, e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}
