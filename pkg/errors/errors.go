package errors

import "fmt"

// Kind classifies a pipeline error so that callers can decide between
// "skip this item and continue" and "abort the whole run" without
// inspecting message text.
type Kind string

const (
	KindTransport   Kind = "transport"
	KindRateLimit   Kind = "rate_limit"
	KindAuth        Kind = "auth"
	KindExtraction  Kind = "extraction"
	KindNotFound    Kind = "not_found"
	KindServerError Kind = "server_error"
	KindAutomation  Kind = "automation"
	KindUnknown     Kind = "unknown"
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New builds a classified error without an HTTP status code.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithCode builds a classified error carrying an HTTP status code.
func WithCode(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// IsRetryable checks if an error kind should be retried
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindTransport, KindRateLimit, KindServerError:
		return true
	default:
		return false
	}
}

// IsFatal reports whether an error kind should abort the whole run.
// Only authentication failures qualify: every subsequent request would
// fail identically.
func IsFatal(kind Kind) bool {
	return kind == KindAuth
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(statusCode int) Kind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return KindAuth
	case statusCode == 404:
		return KindNotFound
	case statusCode == 429:
		return KindRateLimit
	case statusCode >= 500:
		return KindServerError
	default:
		return KindTransport
	}
}
