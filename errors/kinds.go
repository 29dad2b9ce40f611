package errors

import (
	"errors"
	"fmt"
)

// Kind identifies a failure of the mutation engine. Every kind has a stable
// numeric code that is safe to persist or send to other systems.
type Kind int

const (
	// KindUnknown is never returned by the core; it is the zero value.
	KindUnknown Kind = 0
	// MissingSource means the payload carries neither inline content nor a URL.
	MissingSource Kind = 1001
	// SourceUnavailable means external content could not be opened or read.
	SourceUnavailable Kind = 1002
	// DecodeFailure means the wire content is malformed for its declared format.
	DecodeFailure Kind = 1003
	// SchemaValidationFailure means a well-formed document broke its schema.
	SchemaValidationFailure Kind = 1004
	// InvalidFieldPath means an enrichment target is not rooted at "data".
	InvalidFieldPath Kind = 1005
	// RuleEvaluationFailure means a rule expression could not be evaluated.
	RuleEvaluationFailure Kind = 1006
	// IDExhausted means the ID service could not produce an identifier.
	IDExhausted Kind = 1007
)

var kindNames = map[Kind]string{
	MissingSource:           "missing_source",
	SourceUnavailable:       "source_unavailable",
	DecodeFailure:           "decode_failure",
	SchemaValidationFailure: "schema_validation_failure",
	InvalidFieldPath:        "invalid_field_path",
	RuleEvaluationFailure:   "rule_evaluation_failure",
	IDExhausted:             "id_exhausted",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Code returns the numeric application code.
func (k Kind) Code() int {
	return int(k)
}

// Class maps the kind onto the retry classification.
func (k Kind) Class() ErrorClass {
	switch k {
	case SourceUnavailable:
		return ErrorTransient
	case IDExhausted:
		return ErrorFatal
	default:
		return ErrorInvalid
	}
}

// Sentinels for errors.Is matching against a CoreError of the same kind.
var (
	ErrMissingSource           = &CoreError{Kind: MissingSource, Message: "payload has no content or URL"}
	ErrSourceUnavailable       = &CoreError{Kind: SourceUnavailable, Message: "external content unavailable"}
	ErrDecodeFailure           = &CoreError{Kind: DecodeFailure, Message: "malformed content"}
	ErrSchemaValidationFailure = &CoreError{Kind: SchemaValidationFailure, Message: "schema validation failed"}
	ErrInvalidFieldPath        = &CoreError{Kind: InvalidFieldPath, Message: "invalid field path"}
	ErrRuleEvaluationFailure   = &CoreError{Kind: RuleEvaluationFailure, Message: "rule evaluation failed"}
	ErrIDExhausted             = &CoreError{Kind: IDExhausted, Message: "id generation failed"}
)

// CoreError is the error returned by message construction, the parser and the
// enrichment engine.
type CoreError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
	// Details holds per-field messages, e.g. individual schema violations.
	Details []string
}

// New creates a CoreError. err may be nil.
func New(kind Kind, op, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Op: op, Message: message, Err: err}
}

// Newf creates a CoreError with a formatted message.
func Newf(kind Kind, op string, err error, format string, args ...any) *CoreError {
	return New(kind, op, fmt.Sprintf(format, args...), err)
}

// WithDetails returns the error with per-field details attached.
func (e *CoreError) WithDetails(details ...string) *CoreError {
	e.Details = append(e.Details, details...)
	return e
}

// Code returns the numeric application code of the error's kind.
func (e *CoreError) Code() int {
	return e.Kind.Code()
}

func (e *CoreError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	msg = fmt.Sprintf("%s [%s %d]", msg, e.Kind, e.Kind.Code())
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is matches any CoreError of the same kind, so the package sentinels work with
// errors.Is regardless of Op or Message.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first CoreError in err's chain.
func KindOf(err error) Kind {
	var e *CoreError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the numeric code of err, or 0 when err is not a CoreError.
func CodeOf(err error) int {
	return KindOf(err).Code()
}
