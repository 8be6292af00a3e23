package httpclient

import (
	"os"
	"strings"
)

// Environment supplies the caller-side facts recorded in a LogRecord
type Environment interface {
	ClientIP() string
	UserAgent() string
	Hostname() string
}

// EnvLookup is the signature of os.Getenv
type EnvLookup func(key string) string

type processEnvironment struct {
	getenv   EnvLookup
	hostname func() (string, error)
}

// NewProcessEnvironment reads CGI-style variables from the process environment
func NewProcessEnvironment() Environment {
	return &processEnvironment{getenv: os.Getenv, hostname: os.Hostname}
}

// NewEnvironment reads CGI-style variables through lookup and reports host as
// the host name.
func NewEnvironment(lookup EnvLookup, host string) Environment {
	return &processEnvironment{
		getenv:   lookup,
		hostname: func() (string, error) { return host, nil },
	}
}

// ClientIP prefers the first forwarded address, then the client IP header,
// then the remote address.
func (e *processEnvironment) ClientIP() string {
	if fwd := e.getenv("HTTP_X_FORWARDED_FOR"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := e.getenv("HTTP_CLIENT_IP"); ip != "" {
		return ip
	}
	return e.getenv("REMOTE_ADDR")
}

func (e *processEnvironment) UserAgent() string {
	return e.getenv("HTTP_USER_AGENT")
}

func (e *processEnvironment) Hostname() string {
	name, err := e.hostname()
	if err != nil {
		return ""
	}
	return name
}
