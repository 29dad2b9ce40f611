// Package errors provides standardized error handling for coredata.
//
// # Overview
//
// Two layers live here. The first is the three-class classification inherited
// from the platform error conventions: Transient (retryable), Invalid (bad input,
// do not retry) and Fatal (stop processing). The second is the core taxonomy
// returned by message construction, the document parser and the enrichment
// engine:
//
//	Kind                      Code  Class
//	MissingSource             1001  invalid
//	SourceUnavailable         1002  transient
//	DecodeFailure             1003  invalid
//	SchemaValidationFailure   1004  invalid
//	InvalidFieldPath          1005  invalid
//	RuleEvaluationFailure     1006  invalid
//	IDExhausted               1007  fatal
//
// # Checking kinds
//
//	if err := p.Parse(ctx, msg, ""); err != nil {
//	    if errors.Is(err, errors.ErrSchemaValidationFailure) {
//	        var ce *errors.CoreError
//	        errors.As(err, &ce)
//	        for _, d := range ce.Details {
//	            log.Println(d)
//	        }
//	    }
//	}
//
// errors.KindOf and errors.CodeOf extract the kind and numeric code from any
// error chain, returning KindUnknown / 0 for foreign errors.
//
// # Wrapping
//
// Wrap, WrapInvalid, WrapTransient and WrapFatal produce messages in the form
// "component.method: action failed: cause" and keep the cause reachable through
// errors.Is / errors.As.
//
// # Retry
//
// RetryConfig describes how transient failures (network fetches of external
// payload content) are retried and converts to the retry package's Config.
package errors
