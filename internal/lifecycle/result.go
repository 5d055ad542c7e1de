package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"

	"toolshed/internal/mutate"
	"toolshed/internal/overlay"
	"toolshed/internal/scan"
	"toolshed/internal/tool"
)

// ErrorKind classifies a failed operation by its remedy.
type ErrorKind string

const (
	// ErrorKindPolicy: the target is read-only by administration.
	ErrorKindPolicy ErrorKind = "policy"
	// ErrorKindValidation: the request or the resulting data is invalid.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindConflict: something already exists where the tool would go,
	// or the file changed since the tool was read.
	ErrorKindConflict ErrorKind = "conflict"
	// ErrorKindIO: reading, writing or backing up a file failed.
	ErrorKindIO ErrorKind = "io"
)

// Result is the outcome of a lifecycle operation. Callers never see a raw
// error from this package.
type Result struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

func succeeded() Result { return Result{Success: true} }

func failed(err error) Result {
	return Result{Error: err.Error(), Kind: classify(err)}
}

// PolicyError is returned for any attempt to change a managed-scope tool or
// to move a tool into the managed scope.
type PolicyError struct {
	Op    string
	ID    string
	Scope tool.Scope
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("cannot %s %s: %s scope is read-only", e.Op, e.ID, e.Scope)
}

// RequestError is a move or toggle that can never succeed as asked.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// ErrConflict marks a target that already holds the tool.
var ErrConflict = errors.New("already exists")

func classify(err error) ErrorKind {
	var policy *PolicyError
	var request *RequestError
	var validation *mutate.ValidationFailedError
	switch {
	case errors.As(err, &policy):
		return ErrorKindPolicy
	case errors.As(err, &request), errors.As(err, &validation), errors.Is(err, scan.ErrNoStore):
		return ErrorKindValidation
	case errors.Is(err, ErrConflict), errors.Is(err, fs.ErrExist), errors.Is(err, overlay.ErrStaleIndex):
		return ErrorKindConflict
	}
	return ErrorKindIO
}
