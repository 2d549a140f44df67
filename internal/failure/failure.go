// Package failure defines the error taxonomy shared by every pipeline stage.
//
// Each stage returns a *Error carrying a Kind so that the controller can
// surface a stable kind label together with the human readable text, and so
// that retry policies can decide what is worth repeating.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"unicode/utf8"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindPermissionDenied
	KindRecorderInit
	KindEmptyRecording
	KindUnknownDuration
	KindExportFailed
	KindNetwork
	KindBadStatus
	KindEmptyBody
	KindDecode
	KindMalformedResponse
	KindLinkParse
	KindReadFailed
)

// String returns the label used in logs, metrics and API responses.
func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindRecorderInit:
		return "RecorderInitError"
	case KindEmptyRecording:
		return "EmptyRecording"
	case KindUnknownDuration:
		return "UnknownDuration"
	case KindExportFailed:
		return "ExportFailed"
	case KindNetwork:
		return "NetworkError"
	case KindBadStatus:
		return "BadStatus"
	case KindEmptyBody:
		return "EmptyBody"
	case KindDecode:
		return "DecodeError"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindLinkParse:
		return "LinkParseError"
	case KindReadFailed:
		return "ReadError"
	default:
		return "Unknown"
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "transcribe" or "export chunk 2".
	Op string
	// StatusCode is set for KindBadStatus.
	StatusCode int
	// Domain and Code carry transport diagnostics for KindNetwork.
	Domain string
	Code   string
	// Detail is a short human readable description.
	Detail string
	Err    error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrRecorderInit      = &Error{Kind: KindRecorderInit}
	ErrEmptyRecording    = &Error{Kind: KindEmptyRecording}
	ErrUnknownDuration   = &Error{Kind: KindUnknownDuration}
	ErrExportFailed      = &Error{Kind: KindExportFailed}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrBadStatus         = &Error{Kind: KindBadStatus}
	ErrEmptyBody         = &Error{Kind: KindEmptyBody}
	ErrDecode            = &Error{Kind: KindDecode}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrLinkParse         = &Error{Kind: KindLinkParse}
	ErrReadFailed        = &Error{Kind: KindReadFailed}
)

func (e *Error) Error() string {
	label := e.Kind.String()
	if e.Kind == KindBadStatus && e.StatusCode != 0 {
		label = fmt.Sprintf("BadStatus(%d)", e.StatusCode)
	}

	msg := label
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Kind == KindNetwork && (e.Domain != "" || e.Code != "") {
		msg += fmt.Sprintf(" (domain=%s code=%s)", e.Domain, e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error with a formatted detail and no cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// BadStatus reports an HTTP status outside 200-299.
func BadStatus(op string, code int, body string) *Error {
	e := &Error{Kind: KindBadStatus, Op: op, StatusCode: code}
	if body != "" {
		e.Detail = Truncate(body, 256)
	}
	return e
}

// Network wraps a transport level failure and records domain and code
// diagnostics derived from the underlying error chain.
func Network(op string, err error) *Error {
	domain, code := diagnose(err)
	return &Error{Kind: KindNetwork, Op: op, Domain: domain, Code: code, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCodeOf returns the HTTP status carried by a KindBadStatus error, or 0.
func StatusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindBadStatus {
		return e.StatusCode
	}
	return 0
}

func diagnose(err error) (domain, code string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "context", "timeout"
	case errors.Is(err, context.Canceled):
		return "context", "canceled"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		domain = "url." + urlErr.Op
		if urlErr.Timeout() {
			return domain, "timeout"
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "net.dns", dnsErr.Err
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if domain == "" {
			domain = "syscall"
		}
		return domain, errno.Error()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "net." + opErr.Op, opErr.Net
	}

	if domain == "" {
		domain = "transport"
	}
	return domain, "unknown"
}

// Truncate shortens s to at most maxLen bytes plus an ellipsis, cutting on a
// rune boundary so multi-byte text stays valid UTF-8.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
