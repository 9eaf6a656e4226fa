// Package mempool provides size-classed byte buffer pools for scratch space
// on decode hot paths.
package mempool

import (
	"sync"
)

const step = 1024

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next multiple of 1024, with 1024 as minimum.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func pool(cls int) *sync.Pool {
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]byte, cls) }})
	return pAny.(*sync.Pool) //nolint:forcetypeassert
}

// GetBytes retrieves a []byte of length n from the pool. Its contents are
// undefined. The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	buf, ok := pool(cls).Get().([]byte)
	if !ok || cap(buf) < cls {
		buf = make([]byte, cls)
	}
	return buf[:n]
}

// PutBytes returns a buffer to the pool. A buffer that grew past its class
// is filed under the largest class it can still serve; buffers smaller than
// the minimum class are dropped. It is safe to pass a nil slice.
func PutBytes(buf []byte) {
	c := cap(buf)
	if c < step {
		return
	}
	cls := c / step * step
	pool(cls).Put(buf[:cls]) //nolint:staticcheck
}
