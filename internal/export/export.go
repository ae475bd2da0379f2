// Package export renders a located case report for people: JSON for tools,
// YAML for reading and a PDF evidence sheet for filing.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/reportlocator/internal/report"
)

// Formats lists the supported output format names.
var Formats = []string{"json", "yaml", "pdf"}

// Write renders res to w in the named format.
func Write(w io.Writer, format string, res report.Result) error {
	switch strings.ToLower(format) {
	case "", "json":
		return JSON(w, res)
	case "yaml", "yml":
		return YAML(w, res)
	case "pdf":
		return PDF(w, res)
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// JSON writes res as indented JSON, the same shape the HTTP API returns.
func JSON(w io.Writer, res report.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// YAML writes res as YAML. The value goes through its JSON form first so
// BSON-specific payload types render the same way they do over HTTP.
func YAML(w io.Writer, res report.Result) error {
	plain, err := plainValue(res)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plain); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func plainValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return toYAMLFriendly(out), nil
}

// toYAMLFriendly turns json.Number leaves into int64 or float64.
func toYAMLFriendly(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = toYAMLFriendly(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = toYAMLFriendly(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
