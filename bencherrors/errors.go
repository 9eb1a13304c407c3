package bencherrors

import "errors"

var (
	ErrPeerClosed        = errors.New("peer closed the connection")
	ErrServerClosed      = errors.New("server closed")
	ErrEchoMismatch      = errors.New("echoed bytes differ from the sent bytes")
	ErrInvalidParams     = errors.New("invalid benchmark parameters")
	ErrUnsupportedOption = errors.New("unsupported socket option")
	ErrUnexpectedStatus  = errors.New("unexpected http status") // the upload endpoint answered something other than 200
)
