package parflate

import (
	"sync"

	"github.com/chronos-tachyon/assert"
)

var contextPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, contextSize)
	},
}

func takeContext() []byte {
	return contextPool.Get().([]byte)
}

func giveContext(ctx []byte) {
	assert.Assertf(len(ctx) == contextSize, "context slab length %d != %d", len(ctx), contextSize)
	contextPool.Put(ctx) //nolint:staticcheck
}

var scratchPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 64*1024)
		return &buf
	},
}

func takeScratch() *[]byte {
	return scratchPool.Get().(*[]byte)
}

func giveScratch(buf *[]byte) {
	assert.NotNil(&buf)
	scratchPool.Put(buf)
}
