package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format selects how structured values are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Printer writes command results and status lines.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	format Format
}

func New(out, errOut io.Writer, format Format) *Printer {
	return &Printer{out: out, errOut: errOut, format: format}
}

func (p *Printer) Format() Format {
	return p.format
}

func (p *Printer) Success(format string, a ...any) {
	fmt.Fprintf(p.out, "✓ "+format+"\n", a...)
}

func (p *Printer) Error(format string, a ...any) {
	fmt.Fprintf(p.errOut, "✗ "+format+"\n", a...)
}

func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Warn(format string, a ...any) {
	fmt.Fprintf(p.errOut, "⚠ "+format+"\n", a...)
}

// Value renders v as JSON or YAML, or hands a table to fill when the
// format is table. A nil fill falls back to YAML.
func (p *Printer) Value(v any, fill func(*Table)) error {
	switch {
	case p.format == FormatJSON:
		return JSON(p.out, v)
	case p.format == FormatYAML || fill == nil:
		return YAML(p.out, v)
	}
	t := &Table{}
	fill(t)
	return t.Render(p.out)
}

func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

func (t *Table) Header(headers ...string) {
	t.headers = headers
}

func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.headers, "\t"))

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", max(len(h), 4))
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))

	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
