package parser

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/c360/coredata/errors"
)

// Decoder turns UTF-8 bytes into a document tree of map[string]any, []any,
// string, float64, bool and nil.
type Decoder interface {
	Decode(data []byte) (any, error)
	Format() string
}

// JSONDecoder decodes JSON documents. Numbers become float64.
type JSONDecoder struct{}

// NewJSONDecoder creates a new JSON decoder
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

// Decode parses exactly one JSON value. A null document and trailing data are
// rejected.
func (d *JSONDecoder) Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyData
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var result any
	if err := dec.Decode(&result); err != nil {
		return nil, errors.WrapInvalid(err, "JSONDecoder", "Decode", "json parsing")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.WrapInvalid(ErrTrailingData, "JSONDecoder", "Decode", "json parsing")
	}
	if result == nil {
		return nil, errors.WrapInvalid(ErrNullDocument, "JSONDecoder", "Decode", "json parsing")
	}
	return result, nil
}

// Format returns the format name
func (d *JSONDecoder) Format() string {
	return "json"
}

// Validate checks if the data is a single JSON document
func (d *JSONDecoder) Validate(data []byte) error {
	_, err := d.Decode(data)
	return err
}
