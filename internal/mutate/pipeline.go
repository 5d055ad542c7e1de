// Package mutate implements the unit of work behind every structured
// configuration change: re-read, mutate, validate, back up, write.
//
// The pipeline is atomic for a single file only. It takes no locks: it
// narrows the window for lost updates by re-reading immediately before
// mutating, but two pipelines racing on the same file can still overwrite
// each other.
package mutate

import (
	"errors"
	"fmt"

	"toolshed/internal/diff"
	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/pkg/logging"
)

// ErrMissingFile is returned when a mutation would create a file but the
// caller did not set CreateIfMissing.
var ErrMissingFile = errors.New("file does not exist")

// MutateFunc derives a candidate document from the current one. It may
// modify and return current; it must not retain it.
type MutateFunc func(current map[string]any) (map[string]any, error)

// ValidationFailedError carries every validation issue of a rejected
// candidate.
type ValidationFailedError struct {
	Path   string
	Kind   string
	Issues []schema.Issue
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation failed for %s (%s): %s", e.Path, e.Kind, schema.Result{Issues: e.Issues}.Error())
}

// Pipeline runs mutations against the file store.
type Pipeline struct {
	files     *store.FileStore
	validator schema.Validator
	backup    store.Backup
}

// New creates a Pipeline. A nil backup disables snapshots.
func New(files *store.FileStore, validator schema.Validator, backup store.Backup) *Pipeline {
	if backup == nil {
		backup = store.NopBackup{}
	}
	return &Pipeline{files: files, validator: validator, backup: backup}
}

// Mutate applies fn to the file at path and writes the validated result.
// Any failing step aborts the whole operation; nothing is written unless
// every step before the write succeeded. It returns the written document.
func (p *Pipeline) Mutate(path, kind string, fn MutateFunc, opts store.WriteOptions) (map[string]any, error) {
	candidate, existed, err := p.prepare(path, kind, fn)
	if err != nil {
		return nil, err
	}

	if !existed && !opts.CreateIfMissing {
		return nil, fmt.Errorf("mutate %s: %w", path, ErrMissingFile)
	}

	if existed && !opts.SkipBackup {
		if err := p.backup.Snapshot(path); err != nil {
			return nil, fmt.Errorf("mutate %s: backup failed, nothing written: %w", path, err)
		}
	}

	if err := p.files.WriteStructured(path, candidate); err != nil {
		return nil, fmt.Errorf("mutate %s: %w", path, err)
	}

	logging.Info("Pipeline", "Wrote %s (%s)", path, kind)
	return candidate, nil
}

// prepare runs the read, mutate and validate steps.
func (p *Pipeline) prepare(path, kind string, fn MutateFunc) (map[string]any, bool, error) {
	// Always re-read: the agent or another editor may have changed the
	// file since it was last displayed.
	res := p.files.ReadStructured(path)
	if !res.OK() {
		return nil, false, fmt.Errorf("mutate %s: %w", path, res.Err())
	}

	current := res.Data
	if !res.Present {
		current = map[string]any{}
	}

	candidate, err := fn(current)
	if err != nil {
		return nil, res.Present, fmt.Errorf("mutate %s: %w", path, err)
	}
	if candidate == nil {
		candidate = map[string]any{}
	}

	result := p.validator.Validate(kind, candidate)
	if !result.OK {
		return nil, res.Present, &ValidationFailedError{Path: path, Kind: kind, Issues: result.Issues}
	}
	return candidate, res.Present, nil
}

// Preview is the outcome of a dry run.
type Preview struct {
	Path   string
	Before string
	After  string
	Diff   diff.Result
}

// Preview runs the read, mutate and validate steps and reports what would
// be written, without writing or snapshotting anything.
func (p *Pipeline) Preview(path, kind string, fn MutateFunc) (Preview, error) {
	before := p.files.ReadText(path)
	if !before.OK() {
		return Preview{}, before.Err()
	}

	candidate, _, err := p.prepare(path, kind, fn)
	if err != nil {
		return Preview{}, err
	}

	after, err := p.files.Encode(path, candidate)
	if err != nil {
		return Preview{}, err
	}

	return Preview{
		Path:   path,
		Before: before.Data,
		After:  string(after),
		Diff:   diff.NewGenerator(3).Unified(before.Data, string(after), path),
	}, nil
}
