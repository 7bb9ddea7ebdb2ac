// Package report holds the uniform result of one tool invocation and
// renders it as text, JSON or CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatCSV:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected text, json or csv)", s)
	}
}

// Row is one record of the result, keyed by column name.
type Row map[string]any

// Result is what an action executor produces. The renderer has no
// tool-specific logic: CSV and text are driven by Columns and Line,
// JSON by JSONValue when set, the raw rows otherwise.
type Result struct {
	Columns []string
	Rows    []Row

	// JSONValue overrides the JSON representation. Executors set it to a
	// typed value so field order and omitted fields stay stable.
	JSONValue any

	// Line renders one row for text output. Nil falls back to key=value
	// pairs in column order.
	Line func(Row) string

	// EmptyMessage is printed in text mode when there are no rows.
	EmptyMessage string

	// Notes are printed before the rows in text mode (e.g. the URL of a
	// freshly created invite).
	Notes []string

	// Failures collects non-fatal per-item errors. They never change the
	// exit code but are surfaced in text output.
	Failures []string
}

// Render writes the result in the requested format. The same result
// always renders to identical bytes.
func (r *Result) Render(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return r.renderJSON(w)
	case FormatCSV:
		return r.renderCSV(w)
	default:
		return r.renderText(w)
	}
}

func (r *Result) renderJSON(w io.Writer) error {
	v := r.JSONValue
	if v == nil {
		rows := r.Rows
		if rows == nil {
			rows = []Row{}
		}
		v = rows
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (r *Result) renderCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}
	for _, row := range r.Rows {
		record := make([]string, len(r.Columns))
		for i, col := range r.Columns {
			record[i] = formatCell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Result) renderText(w io.Writer) error {
	for _, note := range r.Notes {
		if _, err := fmt.Fprintln(w, note); err != nil {
			return err
		}
	}
	if len(r.Rows) == 0 {
		if r.EmptyMessage != "" {
			if _, err := fmt.Fprintln(w, r.EmptyMessage); err != nil {
				return err
			}
		}
	} else {
		for _, row := range r.Rows {
			if _, err := fmt.Fprintln(w, r.line(row)); err != nil {
				return err
			}
		}
	}
	for _, f := range r.Failures {
		if _, err := fmt.Fprintf(w, "warning: %s\n", f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) line(row Row) string {
	if r.Line != nil {
		return r.Line(row)
	}
	line := ""
	for i, col := range r.Columns {
		if i > 0 {
			line += " "
		}
		line += col + "=" + formatCell(row[col])
	}
	return line
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
