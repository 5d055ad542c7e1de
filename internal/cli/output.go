package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"toolshed/internal/config"
	"toolshed/internal/lifecycle"
	"toolshed/internal/store"
	"toolshed/internal/tool"
)

// OutputFormat is the rendering of command output.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputWide  OutputFormat = "wide"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates an --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputTable, OutputWide, OutputJSON, OutputYAML:
		return f, nil
	case "":
		return OutputTable, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use table, wide, json or yaml)", s)
}

// Printer renders command results.
type Printer struct {
	out       io.Writer
	format    OutputFormat
	noHeaders bool
	color     bool
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, format OutputFormat, noHeaders, color bool) *Printer {
	return &Printer{out: out, format: format, noHeaders: noHeaders, color: color}
}

// Structured reports whether output is machine-readable.
func (p *Printer) Structured() bool {
	return p.format == OutputJSON || p.format == OutputYAML
}

// plainStyle is a kubectl-like table without box drawing.
func plainStyle() table.Style {
	style := table.StyleDefault
	style.Name = "plain"
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	style.Options = table.Options{}
	style.Format.Header = text.FormatUpper
	return style
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(plainStyle())
	return t
}

// PrintValue renders v as JSON or YAML, or with %v for table output.
func (p *Printer) PrintValue(v any) error {
	switch p.format {
	case OutputJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := fmt.Fprintf(p.out, "%v\n", v)
	return err
}

// PrintTools renders a tool list.
func (p *Printer) PrintTools(tools []tool.Tool) error {
	records := tool.Records(tools)
	if p.Structured() {
		return p.PrintValue(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(p.out, p.yellow("No tools found"))
		return err
	}

	t := p.newTable()
	wide := p.format == OutputWide
	if !p.noHeaders {
		header := table.Row{"Scope", "Kind", "Name", "Status", "Eff", "Description"}
		if wide {
			header = append(header, "ID", "Source", "Detail")
		}
		t.AppendHeader(header)
	}
	for _, r := range records {
		effective := ""
		if r.Effective {
			effective = "*"
		}
		desc := r.Description
		if !wide {
			desc = TruncateDescription(desc, DefaultDescriptionMaxLen)
		}
		row := table.Row{r.Scope, r.Kind, r.Name, p.status(r.Status), effective, desc}
		if wide {
			row = append(row, r.ID, r.Source.Path, r.StatusDetail)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// PrintTool renders one tool in detail.
func (p *Printer) PrintTool(tl tool.Tool) error {
	r := tl.Record()
	if p.Structured() {
		return p.PrintValue(r)
	}

	t := p.newTable()
	t.AppendRow(table.Row{"ID", r.ID})
	t.AppendRow(table.Row{"Kind", r.Kind})
	t.AppendRow(table.Row{"Name", r.Name})
	t.AppendRow(table.Row{"Scope", r.Scope})
	t.AppendRow(table.Row{"Status", p.status(r.Status)})
	if r.StatusDetail != "" {
		t.AppendRow(table.Row{"Detail", r.StatusDetail})
	}
	if r.Description != "" {
		t.AppendRow(table.Row{"Description", r.Description})
	}
	t.AppendRow(table.Row{"Source", r.Source.Path})
	t.AppendRow(table.Row{"Canonical key", r.CanonicalKey})
	t.AppendRow(table.Row{"Effective", r.Effective})
	for _, e := range r.ScopeEntries {
		t.AppendRow(table.Row{"Also in", fmt.Sprintf("%s (%s)", e.Scope, e.Status)})
	}
	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.AppendRow(table.Row{k, r.Metadata[k]})
	}
	t.Render()
	return nil
}

// ResultRecord is the structured form of a lifecycle outcome.
type ResultRecord struct {
	Operation string `json:"operation" yaml:"operation"`
	ID        string `json:"id" yaml:"id"`
	lifecycle.Result `yaml:",inline"`
}

// PrintResult renders the outcome of a lifecycle operation.
func (p *Printer) PrintResult(op, id string, res lifecycle.Result) error {
	if p.Structured() {
		return p.PrintValue(ResultRecord{Operation: op, ID: id, Result: res})
	}
	if res.Success {
		_, err := fmt.Fprintln(p.out, p.green(FormatSuccess(fmt.Sprintf("%s %s", op, id))))
		return err
	}
	_, err := fmt.Fprintln(p.out, p.red(fmt.Sprintf("%s %s failed (%s): %s", op, id, res.Kind, res.Error)))
	return err
}

// PrintSnapshots renders backup snapshots.
func (p *Printer) PrintSnapshots(snaps []store.Snapshot) error {
	if p.Structured() {
		return p.PrintValue(snaps)
	}
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(p.out, p.yellow("No backups found"))
		return err
	}
	t := p.newTable()
	if !p.noHeaders {
		t.AppendHeader(table.Row{"ID", "Created", "Type", "Path"})
	}
	for _, s := range snaps {
		kind := "file"
		if s.IsDirectory {
			kind = "dir"
		}
		t.AppendRow(table.Row{s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), kind, s.Path})
	}
	t.Render()
	return nil
}

// PrintConfigurationErrors writes a warning summary of unreadable stores.
func (p *Printer) PrintConfigurationErrors(w io.Writer, errs *config.ConfigurationErrorCollection) {
	if errs == nil || !errs.HasErrors() {
		return
	}
	fmt.Fprintln(w, p.yellow(FormatWarning(errs.Summary())))
}

func (p *Printer) status(s tool.Status) string {
	switch s {
	case tool.StatusEnabled:
		return p.green(string(s))
	case tool.StatusDisabled:
		return p.faint(string(s))
	case tool.StatusWarning:
		return p.yellow(string(s))
	case tool.StatusError:
		return p.red(string(s))
	}
	return string(s)
}

func (p *Printer) paint(c text.Colors, s string) string {
	if !p.color {
		return s
	}
	return c.Sprint(s)
}

func (p *Printer) green(s string) string  { return p.paint(text.Colors{text.FgGreen}, s) }
func (p *Printer) red(s string) string    { return p.paint(text.Colors{text.FgRed}, s) }
func (p *Printer) yellow(s string) string { return p.paint(text.Colors{text.FgYellow}, s) }
func (p *Printer) faint(s string) string  { return p.paint(text.Colors{text.Faint}, s) }
