package schema

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/pkg/tree"
)

//go:embed schemas/iso20022.json
var iso20022Schema []byte

// Validator checks a decoded document.
type Validator interface {
	Validate(doc any) error
}

// JSONSchema validates documents against a compiled JSON Schema.
type JSONSchema struct {
	name   string
	schema *gojsonschema.Schema
}

// NewJSONSchema compiles source, a JSON Schema document.
func NewJSONSchema(name string, source []byte) (*JSONSchema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(source))
	if err != nil {
		return nil, errors.WrapInvalid(err, "JSONSchema", "NewJSONSchema", fmt.Sprintf("compile %s schema", name))
	}
	return &JSONSchema{name: name, schema: compiled}, nil
}

// LoadJSONSchema reads and compiles a JSON Schema file.
func LoadJSONSchema(name, path string) (*JSONSchema, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "JSONSchema", "LoadJSONSchema", fmt.Sprintf("read %s", path))
	}
	return NewJSONSchema(name, source)
}

// ISO20022 returns the validator for the embedded ISO 20022 schema.
func ISO20022() (*JSONSchema, error) {
	return NewJSONSchema("iso20022", iso20022Schema)
}

// Name returns the schema name used in error messages.
func (s *JSONSchema) Name() string {
	return s.name
}

// Validate checks doc and reports every violation.
func (s *JSONSchema) Validate(doc any) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return errors.Newf(errors.SchemaValidationFailure, "schema.Validate", err,
			"document could not be checked against %s schema", s.name)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.Newf(errors.SchemaValidationFailure, "schema.Validate", nil,
		"document does not conform to %s schema (%d violations)", s.name, len(details)).
		WithDetails(details...)
}

// WellFormed accepts any non-empty document. Decoding already proved the
// document is syntactically valid.
type WellFormed struct{}

// Validate rejects only empty documents.
func (WellFormed) Validate(doc any) error {
	if tree.IsEmpty(doc) {
		return errors.New(errors.SchemaValidationFailure, "schema.Validate", "document is empty", nil)
	}
	return nil
}
