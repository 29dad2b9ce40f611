package parser

import (
	"errors"

	cerrors "github.com/c360/coredata/errors"
)

// Decoding errors. Parse reports them inside a DecodeFailure.
var (
	ErrEmptyData        = errors.New("empty data")
	ErrTrailingData     = errors.New("trailing data after document")
	ErrNullDocument     = errors.New("document is null")
	ErrNoRootElement    = errors.New("no root element")
	ErrMultipleRoots    = errors.New("multiple root elements")
	ErrTooDeep          = errors.New("document nesting too deep")
	ErrInvalidEncoding  = errors.New("content does not match declared encoding")
	ErrContentTooLarge  = cerrors.ErrContentTooLarge
	ErrUnsupportedInput = errors.New("no decoder for format")
)
