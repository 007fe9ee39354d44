package session

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutBufferChunkedDrain(t *testing.T) {
	b := outBuffer{chunkSize: 4, delay: time.Millisecond, max: 1024}
	require.True(t, b.push([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))

	now := time.Now()
	var sent [][]byte
	collect := func(data []byte) error {
		sent = append(sent, append([]byte(nil), data...))
		return nil
	}

	// One chunk per elapsed tick, never more.
	for i := 0; i < 5; i++ {
		require.NoError(t, b.drain(now, collect))
		now = now.Add(time.Millisecond)
	}

	require.Len(t, sent, 3)
	assert.Equal(t, []byte{1, 2, 3, 4}, sent[0])
	assert.Equal(t, []byte{5, 6, 7, 8}, sent[1])
	assert.Equal(t, []byte{9, 10}, sent[2])
	assert.Zero(t, b.pending())
}

func TestOutBufferDelayGate(t *testing.T) {
	b := outBuffer{chunkSize: 2, delay: time.Millisecond, max: 1024}
	require.True(t, b.push([]byte{1, 2, 3, 4}))

	now := time.Now()
	calls := 0
	send := func([]byte) error { calls++; return nil }

	require.NoError(t, b.drain(now, send))
	// Same instant again: the inter-chunk delay has not elapsed.
	require.NoError(t, b.drain(now, send))
	assert.Equal(t, 1, calls)

	require.NoError(t, b.drain(now.Add(time.Millisecond), send))
	assert.Equal(t, 2, calls)
	assert.Zero(t, b.pending())
}

func TestOutBufferOverflowClears(t *testing.T) {
	b := outBuffer{chunkSize: 4, delay: time.Millisecond, max: 8}
	require.True(t, b.push([]byte{1, 2, 3, 4, 5, 6}))

	assert.False(t, b.push(bytes.Repeat([]byte{0x55}, 3)))
	assert.Zero(t, b.pending(), "overflow discards everything queued")
}

func TestOutBufferSendFailureKeepsBytes(t *testing.T) {
	b := outBuffer{chunkSize: 4, delay: time.Millisecond, max: 1024}
	require.True(t, b.push([]byte{1, 2, 3, 4}))

	boom := errors.New("port gone")
	err := b.drain(time.Now(), func([]byte) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, b.pending())
}
