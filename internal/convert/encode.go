package convert

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the serialization of the output document.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat validates a configured format name. "" means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", JSON:
		return JSON, nil
	case YAML:
		return YAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want %q or %q)", s, JSON, YAML)
}

// EncodeError wraps serialization failures so callers can tell them apart
// from trace and structural errors.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding %s output: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode writes doc to w followed by a newline. pretty indents JSON by two
// spaces; YAML is always block style.
func Encode(w io.Writer, doc any, format Format, pretty bool) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return &EncodeError{Format: format, Err: err}
		}
		if err := enc.Close(); err != nil {
			return &EncodeError{Format: format, Err: err}
		}
		return nil
	case JSON, "":
		var data []byte
		var err error
		if pretty {
			data, err = json.MarshalIndent(doc, "", "  ")
		} else {
			data, err = json.Marshal(doc)
		}
		if err != nil {
			return &EncodeError{Format: JSON, Err: err}
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return &EncodeError{Format: JSON, Err: err}
		}
		return nil
	}
	return &EncodeError{Format: format, Err: fmt.Errorf("unsupported format")}
}
