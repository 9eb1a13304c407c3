package benchopts

import "fmt"

type OptionType uint8

type Option interface {
	Type() OptionType
	Value() interface{}
}

const (
	TypeReusePort OptionType = iota
	TypeReuseAddr
	TypeNoDelay
	TypeRecvBuffer
	TypeSendBuffer
	MaxOption
)

func (t OptionType) String() string {
	switch t {
	case TypeReusePort:
		return "reuse_port"
	case TypeReuseAddr:
		return "reuse_addr"
	case TypeNoDelay:
		return "no_delay"
	case TypeRecvBuffer:
		return "recv_buffer"
	case TypeSendBuffer:
		return "send_buffer"
	default:
		panic(fmt.Errorf("invalid option %d", t))
	}
}

// Listener reports whether the option must be set on the listening socket
// before bind. Everything else is applied to each accepted connection.
func (t OptionType) Listener() bool {
	switch t {
	case TypeReusePort, TypeReuseAddr, TypeRecvBuffer, TypeSendBuffer:
		return true
	default:
		return false
	}
}

// AddOption appends add to opts, or replaces the option of the same type.
func AddOption(add Option, opts []Option) []Option {
	for i := range opts {
		if opts[i].Type() != add.Type() {
			continue
		}
		opts[i] = add
		return opts
	}
	return append(opts, add)
}

// Split partitions opts into the ones set on the listening socket and the
// ones set on every accepted connection.
func Split(opts []Option) (listener, conn []Option) {
	for _, opt := range opts {
		if opt.Type().Listener() {
			listener = append(listener, opt)
		} else {
			conn = append(conn, opt)
		}
	}
	return
}
