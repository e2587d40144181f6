package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type ErrorKind string

const (
	KindRedirect    ErrorKind = "redirect"
	KindFieldError  ErrorKind = "fieldError"
	KindRateLimited ErrorKind = "rateLimited"
	KindGeneric     ErrorKind = "generic"
)

const (
	errorInRateLimited = "rate-limited"

	fallbackMessage = "Something went wrong"
)

// Error is every failure the API can answer with, decoded once from the
// response envelope. Only the fields that belong to Kind are set, except
// ErrorIn which is kept on generic errors so callers can map it to a result.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string

	// KindRedirect
	RedirectTo string

	// KindFieldError
	Field string

	// KindRateLimited
	RetryAfter    time.Duration
	LastOTPSentAt *time.Time

	ErrorIn string

	err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRedirect:
		return fmt.Sprintf("%s (redirect to %s)", e.Message, e.RedirectTo)
	case KindFieldError:
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	case KindRateLimited:
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}

	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// AsError returns the API error inside err. Anything else, including
// transport failures, comes back as a generic error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	return &Error{Kind: KindGeneric, Message: fallbackMessage, err: err}
}

type envelope struct {
	Status        string     `json:"status"`
	Error         string     `json:"error"`
	Field         string     `json:"field"`
	RedirectTo    string     `json:"redirectTo"`
	ErrorIn       string     `json:"errorIn"`
	RetryAfter    int        `json:"retryAfter"`
	LastOTPSentAt *time.Time `json:"lastOtpSentAt"`
}

// decodeError picks the kind in order: redirect, rate limit, field, generic.
func decodeError(status int, body []byte, header http.Header) *Error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		env = envelope{}
	}

	msg := env.Error
	if msg == "" {
		msg = fallbackMessage
	}

	e := &Error{
		Status:  status,
		Message: msg,
		ErrorIn: env.ErrorIn,
	}

	switch {
	case env.RedirectTo != "":
		e.Kind = KindRedirect
		e.RedirectTo = env.RedirectTo

	case env.ErrorIn == errorInRateLimited || status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = retryAfter(env, header)
		e.LastOTPSentAt = env.LastOTPSentAt

	case env.Field != "":
		e.Kind = KindFieldError
		e.Field = env.Field

	default:
		e.Kind = KindGeneric
	}

	return e
}

func retryAfter(env envelope, header http.Header) time.Duration {
	if env.RetryAfter > 0 {
		return time.Duration(env.RetryAfter) * time.Second
	}

	if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	return 0
}
