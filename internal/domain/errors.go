package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateRun       = errors.New("audit run already recorded")
	ErrEmptyRun           = errors.New("audit run has no export files")
	ErrMalformedFile      = errors.New("malformed file")
	ErrUnparseableRow     = errors.New("unparseable row")
	ErrInvalidFolderID    = errors.New("invalid folder id")
	ErrArchiveDisabled    = errors.New("audit archive is not configured")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
)

// MalformedFileError reports an export that cannot be normalized at all.
// It is absorbed into a zero-score FileScoreResult rather than aborting a run.
type MalformedFileError struct {
	FileName string
	Reason   string
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Diagnostic())
}

// Diagnostic is the stakeholder-facing description recorded on the result.
func (e *MalformedFileError) Diagnostic() string {
	return "Malformed file: " + e.Reason
}

func (e *MalformedFileError) Unwrap() error { return ErrMalformedFile }

// DuplicateRunError is returned when a run key already has a record or reservation.
type DuplicateRunError struct {
	RunKey uuid.UUID
}

func (e *DuplicateRunError) Error() string {
	return fmt.Sprintf("audit run %s already recorded", e.RunKey)
}

func (e *DuplicateRunError) Unwrap() error { return ErrDuplicateRun }
