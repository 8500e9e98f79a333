package textqueue

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New(DefaultCapacity)

	n := q.Enqueue([]byte("HELLO"))
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, q.Depth())

	var out []byte
	for {
		c, ok := q.DequeueOne()
		if !ok {
			break
		}
		out = append(out, c)
	}
	assert.Equal(t, "HELLO", string(out))
	assert.Equal(t, 0, q.Depth())
}

func TestDequeueEmpty(t *testing.T) {
	q := New(16)
	_, ok := q.DequeueOne()
	assert.False(t, ok)
}

func TestFilterRules(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"printable kept", []byte("abc XYZ ~"), "abc XYZ ~"},
		{"newline and tab kept", []byte("a\nb\tc"), "a\nb\tc"},
		{"carriage return dropped", []byte("a\r\nb"), "a\nb"},
		{"control chars dropped", []byte{0x01, 'a', 0x1F, 'b', 0x7F}, "ab"},
		{"two byte utf8 dropped whole", []byte("a\xC3\xA9b"), "ab"},
		{"three byte utf8 dropped whole", []byte("x\xE2\x82\xACy"), "xy"},
		{"four byte utf8 dropped whole", []byte("p\xF0\x9F\x98\x80q"), "pq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(64)
			n := q.Enqueue(tt.in)
			assert.Equal(t, len(tt.want), n)
			var out []byte
			for {
				c, ok := q.DequeueOne()
				if !ok {
					break
				}
				out = append(out, c)
			}
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestOverflowKeepsPrefixAndExistingData(t *testing.T) {
	q := New(8) // usable capacity 7

	n := q.Enqueue([]byte("abcde"))
	require.Equal(t, 5, n)

	// Only two slots left; the prefix is admitted, the rest dropped.
	n = q.Enqueue([]byte("fghij"))
	assert.Equal(t, 2, n)
	assert.Equal(t, 7, q.Depth())

	// A full queue admits nothing and leaves depth unchanged.
	n = q.Enqueue([]byte("X"))
	assert.Equal(t, 0, n)
	assert.Equal(t, 7, q.Depth())

	var out []byte
	for {
		c, ok := q.DequeueOne()
		if !ok {
			break
		}
		out = append(out, c)
	}
	assert.Equal(t, "abcdefg", string(out))
}

func TestWrapAround(t *testing.T) {
	q := New(8)

	// Cycle enough data through the ring to wrap the indexes several times.
	var got bytes.Buffer
	var want bytes.Buffer
	for round := 0; round < 10; round++ {
		chunk := []byte{'a' + byte(round), '0' + byte(round), '!'}
		want.Write(chunk)
		require.Equal(t, len(chunk), q.Enqueue(chunk))
		for {
			c, ok := q.DequeueOne()
			if !ok {
				break
			}
			got.WriteByte(c)
		}
	}
	assert.Equal(t, want.String(), got.String())
}

func TestSingleProducerSingleConsumer(t *testing.T) {
	q := New(DefaultCapacity)
	const total = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			b := []byte{byte('a' + i%26)}
			for q.Enqueue(b) == 0 {
			}
		}
	}()

	var out []byte
	for len(out) < total {
		if c, ok := q.DequeueOne(); ok {
			out = append(out, c)
		}
	}
	wg.Wait()

	for i, c := range out {
		require.Equal(t, byte('a'+i%26), c, "position %d", i)
	}
	assert.Equal(t, 0, q.Depth())
}
