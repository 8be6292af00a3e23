package httpclient

import (
	"errors"
	"fmt"
)

// ErrorType classifies client errors
type ErrorType string

const (
	// ConfigurationError marks caller mistakes detected before any attempt (empty URL)
	ConfigurationError ErrorType = "configuration"
	// ArgumentError marks invalid arguments such as an unusable mock response or query value
	ArgumentError ErrorType = "argument"
	// TransportError marks a failed exchange recorded in the response state
	TransportError ErrorType = "transport"
)

// Transport error codes. The numbering follows libcurl so that codes recorded
// by the client are comparable with existing curl tooling.
const (
	ErrCodeNone               = 0
	ErrCodeUnsupportedProto   = 1
	ErrCodeURLMalformat       = 3
	ErrCodeCouldntResolveHost = 6
	ErrCodeCouldntConnect     = 7
	ErrCodeReadError          = 26
	ErrCodeOperationTimedOut  = 28
	ErrCodeSSLConnect         = 35
	ErrCodeAbortedByCallback  = 42
	ErrCodeTooManyRedirects   = 47
	ErrCodeSendError          = 55
	ErrCodeRecvError          = 56
	ErrCodeSSLCertProblem     = 58
	ErrCodePeerFailedVerify   = 60
)

// ClientError is implemented by every error created by this package
type ClientError interface {
	error
	Type() ErrorType
}

type configurationError struct {
	message string
	field   string
}

// NewConfigurationError reports an unusable client configuration. It is never retried.
func NewConfigurationError(message, field string) ClientError {
	return &configurationError{message: message, field: field}
}

func (e *configurationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("configuration error: %s (field: %s)", e.message, e.field)
	}
	return "configuration error: " + e.message
}

func (e *configurationError) Type() ErrorType { return ConfigurationError }

type argumentError struct {
	message  string
	argument string
}

// NewArgumentError reports an invalid argument passed to the client
func NewArgumentError(message, argument string) ClientError {
	return &argumentError{message: message, argument: argument}
}

func (e *argumentError) Error() string {
	if e.argument != "" {
		return fmt.Sprintf("argument error: %s [%s]", e.message, e.argument)
	}
	return "argument error: " + e.message
}

func (e *argumentError) Type() ErrorType { return ArgumentError }

type transportError struct {
	code    int
	message string
	err     error
}

// NewTransportError wraps a failed exchange. code is one of the ErrCode constants.
func NewTransportError(code int, message string, cause error) ClientError {
	return &transportError{code: code, message: message, err: cause}
}

func (e *transportError) Error() string {
	return fmt.Sprintf("transport error %d: %s", e.code, e.message)
}

func (e *transportError) Type() ErrorType { return TransportError }

func (e *transportError) Unwrap() error { return e.err }

// Code returns the numeric transport error code
func (e *transportError) Code() int { return e.code }

// IsErrorType reports whether err, or any error it wraps, is a ClientError of type t
func IsErrorType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == t
	}
	return false
}

// IsSuccessStatus checks if the HTTP status code indicates success (2xx range)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
