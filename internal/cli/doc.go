// Package cli renders toolshed command output.
//
// A Printer writes tool lists, single-tool details, lifecycle results and
// backup snapshots in one of four formats:
//   - table: a borderless table with the most useful columns, descriptions
//     truncated to fit
//   - wide: the table plus tool IDs, source paths and status details
//   - json: the flat tool.Record shape, indented
//   - yaml: the same shape as YAML
//
// Table output colors statuses when writing to a terminal. Structured
// output is never colored, so it can be piped into other tools.
//
// FormatError, FormatSuccess and FormatWarning prefix one-line messages
// consistently across commands.
package cli
