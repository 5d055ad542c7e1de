package store

import "fmt"

// ReadFailure describes a file that exists but could not be read or decoded.
type ReadFailure struct {
	Path    string
	Message string
}

func (f *ReadFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// ReadResult is the tagged outcome of a read. Exactly one of three states
// holds: Present with Data, absent (Present false, Failure nil), or failed.
type ReadResult[T any] struct {
	Data    T
	Present bool
	Failure *ReadFailure
}

// OK reports whether the read succeeded, including the absent case.
func (r ReadResult[T]) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil.
func (r ReadResult[T]) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

func found[T any](data T) ReadResult[T] {
	return ReadResult[T]{Data: data, Present: true}
}

func absent[T any]() ReadResult[T] {
	return ReadResult[T]{}
}

func failed[T any](path string, format string, args ...any) ReadResult[T] {
	return ReadResult[T]{Failure: &ReadFailure{Path: path, Message: fmt.Sprintf(format, args...)}}
}

// WriteOptions tune a single structured write through the mutation pipeline.
type WriteOptions struct {
	// SkipBackup omits the pre-overwrite snapshot.
	SkipBackup bool
	// CreateIfMissing allows writing where no file existed before.
	CreateIfMissing bool
}
