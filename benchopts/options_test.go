package benchopts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddOptionReplacesSameType(t *testing.T) {
	assert := assert.New(t)

	opts := []Option{ReuseAddr(false), NoDelay(true)}
	opts = AddOption(ReuseAddr(true), opts)

	assert.Len(opts, 2)
	assert.Equal(TypeReuseAddr, opts[0].Type())
	assert.Equal(true, opts[0].Value())

	opts = AddOption(RecvBuffer(1<<20), opts)
	assert.Len(opts, 3)
	assert.Equal(1<<20, opts[2].Value())
}

func TestSplit(t *testing.T) {
	assert := assert.New(t)

	ln, conn := Split([]Option{
		ReuseAddr(true),
		NoDelay(false),
		SendBuffer(4096),
		ReusePort(true),
	})

	assert.Len(ln, 3)
	assert.Len(conn, 1)
	assert.Equal(TypeNoDelay, conn[0].Type())
	for _, opt := range ln {
		assert.True(opt.Type().Listener(), opt.Type().String())
	}
}

func TestOptionTypeString(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("reuse_port", TypeReusePort.String())
	assert.Equal("recv_buffer", TypeRecvBuffer.String())
	assert.Panics(func() { _ = MaxOption.String() })
}
