// Package workboard implements the WorkBoard API core: input validation,
// the transport client, and the error taxonomy shared by both.
package workboard

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure classes an operation can surface.
// Every error leaving this package carries exactly one Kind.
type Kind string

const (
	// KindValidation marks caller input that failed a schema check.
	KindValidation Kind = "validation"

	// KindInvalidIdentifier marks an identifier that is not a positive
	// integer.
	KindInvalidIdentifier Kind = "invalid_identifier"

	// KindNotFound maps the remote 404 status.
	KindNotFound Kind = "not_found"

	// KindPermissionDenied maps the remote 401 and 403 statuses.
	KindPermissionDenied Kind = "permission_denied"

	// KindRateLimit maps the remote 429 status.
	KindRateLimit Kind = "rate_limit"

	// KindRemoteAPI covers every other non-2xx status, malformed response
	// bodies, and network-level transport failures.
	KindRemoteAPI Kind = "remote_api"

	// KindResponseTooLarge marks a response body whose received byte
	// count exceeded the local cap.
	KindResponseTooLarge Kind = "response_too_large"
)

// Error is the single error type of the taxonomy. Messages are safe to show
// to callers: identifier echoes are truncated at construction, and remote or
// transport text only enters through the Client's scrubbing factory.
type Error struct {
	Kind Kind

	// Status is the HTTP status code for remote errors, 0 for transport
	// failures and local errors.
	Status int

	msg string
}

func (e *Error) Error() string { return e.msg }

// IsKind reports whether err is a taxonomy Error of the given kind.
func IsKind(err error, k Kind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == k
}

// maxEchoLen bounds how much of a caller-supplied value an error message
// may reflect back.
const maxEchoLen = 20

// truncateEcho shortens caller-supplied text before it is embedded in an
// error message, so oversized payloads never round-trip through logs or
// responses.
func truncateEcho(s string) string {
	if len(s) > maxEchoLen {
		return s[:maxEchoLen] + "..."
	}
	return s
}

// NewValidationError reports a schema violation on the named field.
func NewValidationError(field, reason string) *Error {
	return &Error{
		Kind: KindValidation,
		msg:  fmt.Sprintf("invalid %s: %s", field, reason),
	}
}

// NewInvalidIdentifierError reports a value that failed the
// positive-integer identifier check. The rejected value is truncated
// before it is echoed.
func NewInvalidIdentifierError(field string, value any) *Error {
	return &Error{
		Kind: KindInvalidIdentifier,
		msg: fmt.Sprintf("invalid %s: %s. Expected positive integer.",
			field, truncateEcho(fmt.Sprintf("%v", value))),
	}
}

func newNotFoundError(resource, identifier string) *Error {
	return &Error{
		Kind:   KindNotFound,
		Status: 404,
		msg:    fmt.Sprintf("%s not found or not accessible: %s", resource, truncateEcho(identifier)),
	}
}

func newPermissionDeniedError(status int, requiredScope string) *Error {
	return &Error{
		Kind:   KindPermissionDenied,
		Status: status,
		msg:    fmt.Sprintf("Permission denied. Required scope: %s", requiredScope),
	}
}

func newRateLimitError(retryAfter string) *Error {
	msg := "Rate limit exceeded."
	if retryAfter != "" {
		msg += fmt.Sprintf(" Retry after %s seconds.", truncateEcho(retryAfter))
	}
	return &Error{Kind: KindRateLimit, Status: 429, msg: msg}
}

func newResponseTooLargeError(limit int64) *Error {
	return &Error{
		Kind: KindResponseTooLarge,
		msg:  fmt.Sprintf("Response exceeded the %d byte limit and was discarded.", limit),
	}
}

// scrub removes the credential from remote or transport text by exact
// substring replacement. Every factory that carries such text goes
// through it before the error value exists, so no later code path can
// forget to redact.
func (c *Client) scrub(message string) string {
	if token := c.token.Reveal(); token != "" {
		message = strings.ReplaceAll(message, token, "***")
	}
	return message
}

// apiError wraps remote or transport text in a taxonomy error.
func (c *Client) apiError(status int, message string) *Error {
	message = c.scrub(message)
	return &Error{
		Kind:   KindRemoteAPI,
		Status: status,
		msg:    fmt.Sprintf("WorkBoard API error %d: %s", status, message),
	}
}
