// Package output renders tracking data for people and for other programs:
// structured JSON/YAML documents and human-readable console lines.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format: %s (use yaml or json)", s)
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Write(os.Stdout, OutputFormat, PrettyOutput, v)
}

// Write serializes v to w in the given format. pretty only affects JSON.
func Write(w io.Writer, format Format, pretty bool, v interface{}) error {
	switch format {
	case FormatJSON:
		if pretty {
			return WritePrettyJSON(w, v)
		}
		return WriteJSON(w, v)
	case FormatYAML:
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
