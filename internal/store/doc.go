// Package store holds the file primitives every toolshed mutation is built
// on: tagged reads that tell "absent" apart from "unreadable", atomic
// temp-file-then-rename writes, deterministic serialization, and the
// pre-write backup capability.
//
// Reads never return a Go error. A missing file is a success with no data,
// because "not configured" is a valid state; a corrupt or unreadable file is
// a failure carrying the path and a message:
//
//	res := fs.ReadStructured(path)
//	switch {
//	case !res.OK():
//	    return res.Err()
//	case !res.Present:
//	    // nothing configured yet
//	}
//
// Writes return errors. A crash mid-write leaves either the old file or the
// new one on disk, never a truncated mix.
//
// Structured files are JSON-with-comments unless their extension selects the
// secondary format (TOML). The secondary format is built lazily, once, by
// the factory passed to WithSecondaryFormat.
package store
