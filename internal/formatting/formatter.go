package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"tokenrelay/pkg/auth"
	pkgstrings "tokenrelay/pkg/strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	// ErrorWidth bounds the ERROR column in tables. Zero means
	// pkgstrings.DefaultErrorMaxLen.
	ErrorWidth int
	// NoColor disables ANSI colors in tables.
	NoColor bool
}

// WriteStatus renders list to w in the requested format.
func WriteStatus(w io.Writer, list []auth.RouteStatus, opts Options) error {
	if list == nil {
		list = []auth.RouteStatus{}
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		writeTable(w, list, opts)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

func writeTable(w io.Writer, list []auth.RouteStatus, opts Options) {
	if len(list) == 0 {
		fmt.Fprintln(w, colorize(opts, text.FgYellow, "No routes configured"))
		return
	}

	width := opts.ErrorWidth
	if width == 0 {
		width = pkgstrings.DefaultErrorMaxLen
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		colorize(opts, text.FgHiCyan, "ID"),
		colorize(opts, text.FgHiCyan, "PATH"),
		colorize(opts, text.FgHiCyan, "SOURCE"),
		colorize(opts, text.FgHiCyan, "ENDPOINT"),
		colorize(opts, text.FgHiCyan, "STATUS"),
		colorize(opts, text.FgHiCyan, "ERROR"),
	})

	for _, s := range list {
		t.AppendRow(table.Row{
			strconv.Itoa(s.ID),
			s.Name,
			source(s),
			s.Endpoint,
			statusCell(opts, s.Status),
			pkgstrings.Truncate(s.Error, width),
		})
	}

	t.Render()

	failed := 0
	for _, s := range list {
		if s.Failed() {
			failed++
		}
	}
	fmt.Fprintf(w, "\n%s %s %s\n",
		colorize(opts, text.FgHiBlue, "Total:"),
		colorize(opts, text.FgHiWhite, strconv.Itoa(len(list))),
		colorize(opts, text.FgHiBlue, fmt.Sprintf("routes, %d failed", failed)))

	for _, s := range list {
		if s.Manual && s.URL != "" {
			fmt.Fprintf(w, "Authorize route %d at %s\n", s.ID, s.URL)
		}
	}
}

func source(s auth.RouteStatus) string {
	switch {
	case s.Destination != "":
		return "destination:" + s.Destination
	case s.Service != "":
		return "service:" + s.Service
	default:
		return "-"
	}
}

func statusCell(opts Options, status string) string {
	switch status {
	case auth.StatusSuccess:
		return colorize(opts, text.FgGreen, status)
	case auth.StatusPending:
		return colorize(opts, text.FgYellow, status)
	case auth.StatusError:
		return colorize(opts, text.FgRed, status)
	default:
		return colorize(opts, text.FgHiBlack, status)
	}
}

func colorize(opts Options, c text.Color, s string) string {
	if opts.NoColor {
		return s
	}
	return c.Sprint(s)
}
