package advice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why an advice request failed.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindAuth     Kind = "auth"
	KindQuota    Kind = "quota"
	KindUpstream Kind = "upstream"
	KindParse    Kind = "parse"
	KindDecode   Kind = "decode"
	KindCanceled Kind = "canceled"
)

// KindOK is not an error kind; it labels successful outcomes in logs and tallies.
const KindOK Kind = "ok"

// Error is the error type returned by every Advisor.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindOK for nil, and KindUpstream for errors
// that were never classified.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUpstream
}

// TransportError classifies a failure to get any HTTP response at all.
// Cancellation of ctx wins over whatever the transport reported.
func TransportError(ctx context.Context, op string, err error) *Error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Op: op, Err: err}
	}
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// StatusError classifies a non-2xx HTTP response.
func StatusError(op string, status int, body string) *Error {
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &Error{Kind: KindForStatus(status), Op: op, StatusCode: status, Err: err}
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindQuota
	default:
		return KindUpstream
	}
}

// ParseError reports a response that arrived but lacked the expected text.
func ParseError(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}
