package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/arjunmahishi/rsdoc/rsdoc"
)

// Format selects how reports are rendered.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat converts a flag value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Writer renders reports to an output stream.
type Writer struct {
	format  Format
	out     io.Writer
	errOut  io.Writer
	encoder *json.Encoder
	palette palette
}

// Config holds writer configuration.
type Config struct {
	Format    Format
	Compact   bool
	NoColor   bool
	Output    io.Writer
	ErrOutput io.Writer
}

type palette struct {
	file, insert, merge, skip, fail, dim *color.Color
}

// New creates a new output writer.
func New(cfg Config) *Writer {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.ErrOutput == nil {
		cfg.ErrOutput = os.Stderr
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}

	encoder := json.NewEncoder(cfg.Output)
	encoder.SetEscapeHTML(false)
	if !cfg.Compact {
		encoder.SetIndent("", "  ")
	}

	p := palette{
		file:   color.New(color.Bold),
		insert: color.New(color.FgGreen),
		merge:  color.New(color.FgCyan),
		skip:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
		dim:    color.New(color.Faint),
	}
	if cfg.NoColor {
		for _, c := range []*color.Color{p.file, p.insert, p.merge, p.skip, p.fail, p.dim} {
			c.DisableColor()
		}
	}

	return &Writer{
		format:  cfg.Format,
		out:     cfg.Output,
		errOut:  cfg.ErrOutput,
		encoder: encoder,
		palette: p,
	}
}

// Write renders v in the configured format. The text format knows the
// pipeline reports and falls back to JSON for anything else.
func (w *Writer) Write(v any) error {
	switch w.format {
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		switch r := v.(type) {
		case []rsdoc.FileResult:
			return w.writeResults(r)
		case []rsdoc.ItemsResult:
			return w.writeItems(r)
		case []*rsdoc.Plan:
			return w.writePlans(r)
		}
	}
	return w.encoder.Encode(v)
}

// WriteError writes an error message to stderr as JSON.
func (w *Writer) WriteError(format string, args ...any) {
	enc := json.NewEncoder(w.errOut)
	enc.Encode(map[string]string{
		"error": formatMessage(format, args...),
	})
}

func formatMessage(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func (w *Writer) writeResults(results []rsdoc.FileResult) error {
	p := w.palette
	var sb strings.Builder
	changed, failed := 0, 0
	for _, r := range results {
		sb.WriteString(p.file.Sprint(r.File))
		sb.WriteString(": ")
		switch {
		case r.Err != nil:
			failed++
			sb.WriteString(p.fail.Sprintf("failed at %s", r.Err.Stage))
			sb.WriteString(": " + r.Err.Detail + "\n")
			continue
		case r.Changed:
			changed++
			sb.WriteString("changed")
		default:
			sb.WriteString(p.dim.Sprint("unchanged"))
		}
		fmt.Fprintf(&sb, " %s %s %s\n",
			p.insert.Sprintf("inserted=%d", r.Inserted),
			p.merge.Sprintf("merged=%d", r.Merged),
			p.skip.Sprintf("skipped=%d", r.Skipped))
		for _, s := range r.Skips {
			fmt.Fprintf(&sb, "  %s %s (%s)\n", p.skip.Sprint("skip"), s.Item, s.Reason)
		}
	}
	fmt.Fprintf(&sb, "%d files, %d changed, %d failed\n", len(results), changed, failed)
	_, err := io.WriteString(w.out, sb.String())
	return err
}

func (w *Writer) writeItems(results []rsdoc.ItemsResult) error {
	p := w.palette
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(p.file.Sprint(r.File) + "\n")
		if r.Err != nil {
			fmt.Fprintf(&sb, "  %s: %s\n", p.fail.Sprintf("failed at %s", r.Err.Stage), r.Err.Detail)
			continue
		}
		for _, it := range r.Items {
			vis := "private"
			if it.Public {
				vis = "public"
			}
			fmt.Fprintf(&sb, "  %d:%d %s %s %s\n",
				it.Range.Start.Line, it.Range.Start.Column, it.Kind, it.ID, p.dim.Sprint(vis))
		}
	}
	_, err := io.WriteString(w.out, sb.String())
	return err
}

func (w *Writer) writePlans(plans []*rsdoc.Plan) error {
	p := w.palette
	var sb strings.Builder
	for _, plan := range plans {
		sb.WriteString(p.file.Sprint(plan.File) + "\n")
		for _, a := range plan.Actions {
			switch a.Kind {
			case rsdoc.ActionInsert:
				fmt.Fprintf(&sb, "  %s %s\n", p.insert.Sprint("insert"), a.ItemID)
				writeDocLines(&sb, a.Block.Lines())
			case rsdoc.ActionMerge:
				fmt.Fprintf(&sb, "  %s %s\n", p.merge.Sprint("merge"), a.ItemID)
				writeDocLines(&sb, a.Block.Lines())
			default:
				fmt.Fprintf(&sb, "  %s %s (%s)\n", p.skip.Sprint("skip"), a.ItemID, a.Reason)
			}
		}
	}
	_, err := io.WriteString(w.out, sb.String())
	return err
}

func writeDocLines(sb *strings.Builder, lines []string) {
	for _, l := range lines {
		if l == "" {
			sb.WriteString("    ///\n")
			continue
		}
		sb.WriteString("    /// " + l + "\n")
	}
}
