package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

// outputFormat resolves --format. Piped output defaults to JSON so scripts
// never have to parse tables.
func outputFormat(w io.Writer) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(flagFormat)); f {
	case "":
		if isTerminal(w) {
			return formatTable, nil
		}
		return formatJSON, nil
	case formatTable, formatYAML, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use table, yaml or json)", flagFormat)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// render writes v as JSON or YAML, or hands a tab writer to table.
func render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	format, err := outputFormat(w)
	if err != nil {
		return err
	}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("json encode: %w", err)
		}
		return nil
	case formatYAML:
		// Go through JSON so keys match the json tags of the wire types.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("json encode: %w", err)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
