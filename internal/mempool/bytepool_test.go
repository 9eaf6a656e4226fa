package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "small size gets minimum", input: 1, expected: 1024},
		{name: "exactly 1024", input: 1024, expected: 1024},
		{name: "just over 1024", input: 1025, expected: 2048},
		{name: "odd number", input: 1500, expected: 2048},
		{name: "large size", input: 10000, expected: 10240},
		{name: "zero size", input: 0, expected: 1024},
		{name: "negative size", input: -1, expected: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes(t *testing.T) {
	for _, n := range []int{0, 100, 1024, 5000} {
		buf := GetBytes(n)
		assert.Len(t, buf, n)
		assert.GreaterOrEqual(t, cap(buf), sizeClass(n))
		PutBytes(buf)
	}
	assert.Empty(t, GetBytes(-5))
}

func TestPutBytes_OddCapacities(t *testing.T) {
	// none of these may panic or poison a class with a short buffer
	PutBytes(nil)
	PutBytes(make([]byte, 10))
	PutBytes(make([]byte, 0, 3000))

	buf := GetBytes(2048)
	require.Len(t, buf, 2048)
	assert.GreaterOrEqual(t, cap(buf), 2048)
	buf = GetBytes(3000)
	assert.GreaterOrEqual(t, cap(buf), 3072)
}

func TestConcurrentAccess(t *testing.T) {
	const numGoroutines = 50
	const numIterations = 100
	const bufferSize = 1500

	var wg sync.WaitGroup
	for g := range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range numIterations {
				buf := GetBytes(bufferSize)
				if len(buf) != bufferSize {
					t.Errorf("got length %d", len(buf))
					return
				}
				for k := range buf {
					buf[k] = byte(g)
				}
				PutBytes(buf)
			}
		}()
	}
	wg.Wait()
}
