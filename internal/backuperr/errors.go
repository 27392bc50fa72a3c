// Package backuperr defines the error taxonomy shared by the archiver,
// classifier, retention enforcer, scheduler and config store.
package backuperr

import (
	"errors"
	"fmt"
)

// Code classifies a backup error.
type Code int

const (
	// Unknown is an error that carries no classification.
	Unknown Code = iota
	// SourceUnavailable means the source directory is missing or unreadable.
	SourceUnavailable
	// DestUnavailable means the destination directory is missing, unreadable or not writable.
	DestUnavailable
	// ArchiveWriteFailed means the snapshot could not be written or finalized.
	ArchiveWriteFailed
	// DeleteFailed means a single snapshot could not be removed during rotation.
	DeleteFailed
	// InvalidPaths means the scheduler refused to start because a folder does not exist.
	InvalidPaths
	// ConfigLoadFailed means persisted settings could not be read; defaults are used.
	ConfigLoadFailed
	// ConfigSaveFailed means settings could not be persisted.
	ConfigSaveFailed
)

// ErrNameCollision is wrapped by ArchiveWriteFailed when a snapshot with the
// same name already exists in the destination.
var ErrNameCollision = errors.New("snapshot name already exists")

var codeNames = map[Code]string{
	Unknown:            "Unknown",
	SourceUnavailable:  "SourceUnavailable",
	DestUnavailable:    "DestUnavailable",
	ArchiveWriteFailed: "ArchiveWriteFailed",
	DeleteFailed:       "DeleteFailed",
	InvalidPaths:       "InvalidPaths",
	ConfigLoadFailed:   "ConfigLoadFailed",
	ConfigSaveFailed:   "ConfigSaveFailed",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Glyph returns the log marker used when an error of this code is reported.
func (c Code) Glyph() string {
	switch c {
	case DeleteFailed, ConfigLoadFailed, ConfigSaveFailed:
		return "⚠"
	default:
		return "✗"
	}
}

// Error is a classified backup error.
type Error struct {
	Code Code   // Error classification
	Op   string // Operation that failed, e.g. "create snapshot"
	Path string // File or directory involved, if any
	Err  error  // Underlying error, if any
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(code Code, op, path string, err error) error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or Unknown.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return Unknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Glyph returns the log marker for err.
func Glyph(err error) string {
	return CodeOf(err).Glyph()
}
