package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeStateConflict   Code = "STATE_CONFLICT"
	CodeCacheDivergence Code = "CACHE_DIVERGENCE"
	CodeDependency      Code = "DEPENDENCY_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Metadata describes how a code may surface to the end user and the
// operator. UserMessage is the only text that may reach chat output;
// Fatal marks consistency bugs that must abort the turn loudly.
type Metadata struct {
	UserMessage string
	Retryable   bool
	Fatal       bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		UserMessage: "The value you entered is not valid, please try again.",
		Retryable:   true,
	},
	CodeNotFound: {
		UserMessage: "The requested record no longer exists.",
	},
	CodeStateConflict: {
		UserMessage: "Something is inconsistent, please contact the administrator.",
	},
	CodeCacheDivergence: {
		UserMessage: "Something is inconsistent, please contact the administrator.",
		Fatal:       true,
	},
	CodeDependency: {
		UserMessage: "Something is inconsistent, please contact the administrator.",
		Retryable:   true,
	},
	CodeInternal: {
		UserMessage: "Something is inconsistent, please contact the administrator.",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsFatal reports whether the error carries a code that signals a
// consistency bug rather than a recoverable condition.
func IsFatal(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Fatal
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
