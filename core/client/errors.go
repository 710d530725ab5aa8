package client

import (
	"errors"
	"strings"
)

var (
	ErrNoServers = errors.New("no servers configured")

	errWrite = errors.New("failed to write packet")
)

type ErrorKind int

const (
	KindTimeout ErrorKind = iota + 1
	KindUnreachable
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// QueryError reports why a single server could not be queried. For
// KindProtocol, Err is the *ntp.DecodeError of the response.
type QueryError struct {
	Server string
	Kind   ErrorKind
	Err    error
}

func (e *QueryError) Error() string {
	return "failed to query " + e.Server + " (" + e.Kind.String() + "): " + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// AllFailedError holds one QueryError per server tried, in list order.
type AllFailedError struct {
	Errors []*QueryError
}

func (e *AllFailedError) Error() string {
	if len(e.Errors) == 0 {
		return "all servers failed: no server tried"
	}
	var b strings.Builder
	b.WriteString("all servers failed: ")
	for i, qerr := range e.Errors {
		if i != 0 {
			b.WriteString("; ")
		}
		b.WriteString(qerr.Error())
	}
	return b.String()
}

func (e *AllFailedError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, qerr := range e.Errors {
		errs[i] = qerr
	}
	return errs
}
