// Package render prints corpus reports as a console table, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/domain"
)

// Format selects the report encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name. An empty name selects the table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (want table, json or yaml)", domain.ErrConfig, s)
	}
}

// Renderer writes reports in one format.
type Renderer struct {
	format Format
	now    func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// New creates a renderer for format.
func New(format Format, opts ...Option) *Renderer {
	r := &Renderer{format: format, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes report to w.
func (r *Renderer) Render(w io.Writer, report app.Report) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return r.renderTable(w, report)
	}
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.Bold)
	muted   = color.New(color.Faint)
)

func (r *Renderer) renderTable(w io.Writer, report app.Report) error {
	var b strings.Builder

	heading.Fprintln(&b, "===== BACKUP REPORT =====")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %d\n", label.Sprint("Snapshot files:"), report.FileCount)

	if report.FileCount == 0 || report.LatestFile == nil {
		fmt.Fprintln(&b, report.Message)
		_, err := io.WriteString(w, b.String())
		return err
	}

	latest := report.LatestFile
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, label.Sprint("Latest snapshot:"))
	fmt.Fprintf(&b, "  File:       %s\n", latest.Name)
	fmt.Fprintf(&b, "  Created at: %s %s\n",
		latest.HumanReadable,
		muted.Sprintf("(%s)", humanize.RelTime(latest.CreatedAt, r.now(), "ago", "from now")))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, label.Sprint("Entities by id (snapshots containing each id):"))

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"ID", "Snapshots"})
	for _, c := range report.IDCounts {
		tbl.AppendRow(table.Row{c.ID, humanize.Comma(int64(c.Amount))})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d ids", len(report.IDCounts)), ""})
	b.WriteString(tbl.Render())
	fmt.Fprintln(&b)

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %s\n", label.Sprint("Average entities per snapshot:"), report.AveragePerFile)
	fmt.Fprintf(&b, "%s %s\n", label.Sprint("Total entities across all snapshots:"), humanize.Comma(int64(report.TotalAcrossAll)))

	_, err := io.WriteString(w, b.String())
	return err
}
