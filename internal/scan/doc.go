// Package scan normalizes on-disk tool definitions into tool.Tool values
// and builds the cross-scope inventory.
//
// Each on-disk shape has its own normalizer: skill directories, command and
// prompt markdown files, server registrations inside a servers file, and
// hook matcher groups inside a settings file. Normalizers never fail; an
// entry that cannot be understood is still listed, with an Error or Warning
// status explaining why, so one broken definition never hides the rest.
package scan
