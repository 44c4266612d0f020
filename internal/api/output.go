// Package api renders command results for the terminal: structured output
// as YAML or JSON, and styled batch summaries.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat is a structured output encoding selected with --output.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

var DefaultOutput = OutputFormatYAML

var current = DefaultOutput

// ParseOutputFormat accepts json, yaml, yml or "" (yaml).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", "yml", "yaml":
		return OutputFormatYAML, nil
	case "json":
		return OutputFormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want yaml or json)", s)
}

// SetOutputFormat selects the format used by Output. An invalid value
// restores DefaultOutput and returns an error.
func SetOutputFormat(s string) error {
	f, err := ParseOutputFormat(s)
	if err != nil {
		f = DefaultOutput
	}
	current = f
	return err
}

func GetOutputFormat() OutputFormat { return current }

// Output writes v to stdout in the selected format.
func Output(v any) error { return OutputTo(os.Stdout, current, v) }

// OutputTo writes v to w as indented JSON or two-space YAML.
func OutputTo(w io.Writer, format OutputFormat, v any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format: %s", format)
}
