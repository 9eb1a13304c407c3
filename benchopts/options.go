package benchopts

type optionReusePort struct {
	v bool
}

// ReusePort lets several echo servers bind the same port, the kernel spreading
// connections across them.
func ReusePort(v bool) Option {
	return &optionReusePort{
		v: v,
	}
}

func (o *optionReusePort) Type() OptionType {
	return TypeReusePort
}

func (o *optionReusePort) Value() interface{} {
	return o.v
}

type optionReuseAddr struct {
	v bool
}

func ReuseAddr(v bool) Option {
	return &optionReuseAddr{
		v: v,
	}
}

func (o *optionReuseAddr) Type() OptionType {
	return TypeReuseAddr
}

func (o *optionReuseAddr) Value() interface{} {
	return o.v
}

type optionNoDelay struct {
	v bool
}

func NoDelay(v bool) Option {
	return &optionNoDelay{
		v: v,
	}
}

func (o *optionNoDelay) Type() OptionType {
	return TypeNoDelay
}

func (o *optionNoDelay) Value() interface{} {
	return o.v
}

type optionRecvBuffer struct {
	n int
}

// RecvBuffer sets SO_RCVBUF in bytes. Accepted connections inherit it from the
// listening socket.
func RecvBuffer(n int) Option {
	return &optionRecvBuffer{
		n: n,
	}
}

func (o *optionRecvBuffer) Type() OptionType {
	return TypeRecvBuffer
}

func (o *optionRecvBuffer) Value() interface{} {
	return o.n
}

type optionSendBuffer struct {
	n int
}

// SendBuffer sets SO_SNDBUF in bytes.
func SendBuffer(n int) Option {
	return &optionSendBuffer{
		n: n,
	}
}

func (o *optionSendBuffer) Type() OptionType {
	return TypeSendBuffer
}

func (o *optionSendBuffer) Value() interface{} {
	return o.n
}
