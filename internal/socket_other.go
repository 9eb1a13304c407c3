//go:build !(linux || darwin || freebsd)

package internal

import (
	"fmt"
	"net"
	"syscall"

	"github.com/talostrading/echobench/bencherrors"
	"github.com/talostrading/echobench/benchopts"
)

func ApplyOpts(_ int, opts ...benchopts.Option) error {
	if len(opts) > 0 {
		return fmt.Errorf("%w type=%d", bencherrors.ErrUnsupportedOption, uint8(opts[0].Type()))
	}
	return nil
}

func Control(opts ...benchopts.Option) func(string, string, syscall.RawConn) error {
	if len(opts) == 0 {
		return nil
	}
	return func(string, string, syscall.RawConn) error {
		return ApplyOpts(-1, opts...)
	}
}

func ApplyConnOpts(_ net.Conn, opts ...benchopts.Option) error {
	return ApplyOpts(-1, opts...)
}
