package response

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	Field         string     `json:"field,omitempty"`
	RedirectTo    string     `json:"redirectTo,omitempty"`
	ErrorIn       string     `json:"errorIn,omitempty"`
	RetryAfter    int        `json:"retryAfter,omitempty"`
	LastOTPSentAt *time.Time `json:"lastOtpSentAt,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// FieldError reports a business-rule failure tied to one request field.
func FieldError(field, msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
		Field:  field,
	}
}

// Redirect tells the client to drop its local flow state and navigate to path.
func Redirect(path, msg string) Response {
	return Response{
		Status:     StatusError,
		Error:      msg,
		RedirectTo: path,
	}
}

// RateLimited carries the authoritative remaining wait in whole seconds.
func RateLimited(retryAfter time.Duration, lastSentAt *time.Time, msg string) Response {
	return Response{
		Status:        StatusError,
		Error:         msg,
		ErrorIn:       "rate-limited",
		RetryAfter:    Seconds(retryAfter),
		LastOTPSentAt: lastSentAt,
	}
}

// ErrorIn tags an error with a discriminator the client maps to a result state.
func ErrorIn(kind, msg string) Response {
	return Response{
		Status:  StatusError,
		Error:   msg,
		ErrorIn: kind,
	}
}

// Seconds rounds d up to whole seconds, never below one.
func Seconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", err.Field()))
		case "role":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be one of influencer, brand, manager", err.Field()))
		case "username":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s may contain only lowercase letters, digits, dots and underscores (3-30 chars)", err.Field()))
		case "strongpassword":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be at least 8 characters, at most 72 bytes and contain a letter, a digit and a symbol", err.Field()))
		case "otp":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be a 6-digit code", err.Field()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be one of %s", err.Field(), err.Param()))
		case "min", "max":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must satisfy %s=%s", err.Field(), err.ActualTag(), err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	resp := Response{
		Status: StatusError,
		Error:  strings.Join(errMsgs, ", "),
	}

	if len(errs) > 0 {
		resp.Field = errs[0].Field()
	}

	return resp
}
