//go:build linux || darwin || freebsd

package internal

import (
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/talostrading/echobench/bencherrors"
	"github.com/talostrading/echobench/benchopts"
	"golang.org/x/sys/unix"
)

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func ApplyOpts(fd int, opts ...benchopts.Option) error {
	for _, opt := range opts {
		switch t := opt.Type(); t {
		case benchopts.TypeReusePort:
			v := opt.Value().(bool)
			if err := unix.SetsockoptInt(
				fd,
				unix.SOL_SOCKET,
				unix.SO_REUSEPORT,
				boolToInt(v),
			); err != nil {
				return os.NewSyscallError(fmt.Sprintf("reuse_port(%v)", v), err)
			}
		case benchopts.TypeReuseAddr:
			v := opt.Value().(bool)
			if err := unix.SetsockoptInt(
				fd,
				unix.SOL_SOCKET,
				unix.SO_REUSEADDR,
				boolToInt(v),
			); err != nil {
				return os.NewSyscallError(fmt.Sprintf("reuse_address(%v)", v), err)
			}
		case benchopts.TypeNoDelay:
			v := opt.Value().(bool)
			if err := unix.SetsockoptInt(
				fd,
				unix.IPPROTO_TCP,
				unix.TCP_NODELAY,
				boolToInt(v),
			); err != nil {
				return os.NewSyscallError(fmt.Sprintf("tcp_no_delay(%v)", v), err)
			}
		case benchopts.TypeRecvBuffer:
			n := opt.Value().(int)
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n); err != nil {
				return os.NewSyscallError(fmt.Sprintf("recv_buffer(%d)", n), err)
			}
		case benchopts.TypeSendBuffer:
			n := opt.Value().(int)
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n); err != nil {
				return os.NewSyscallError(fmt.Sprintf("send_buffer(%d)", n), err)
			}
		default:
			return fmt.Errorf("%w type=%d", bencherrors.ErrUnsupportedOption, uint8(t))
		}
	}

	return nil
}

// Control returns a net.ListenConfig.Control hook which applies opts to the
// socket before bind.
func Control(opts ...benchopts.Option) func(string, string, syscall.RawConn) error {
	if len(opts) == 0 {
		return nil
	}
	return func(_, _ string, rc syscall.RawConn) error {
		return applyRaw(rc, opts)
	}
}

// ApplyConnOpts applies opts to an established connection. Connections which
// do not expose their file descriptor are left untouched.
func ApplyConnOpts(conn net.Conn, opts ...benchopts.Option) error {
	if len(opts) == 0 {
		return nil
	}
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	return applyRaw(rc, opts)
}

func applyRaw(rc syscall.RawConn, opts []benchopts.Option) error {
	var optErr error
	err := rc.Control(func(fd uintptr) {
		optErr = ApplyOpts(int(fd), opts...)
	})
	if err != nil {
		return err
	}
	return optErr
}
