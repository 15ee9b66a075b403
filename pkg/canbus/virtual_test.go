// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Attach("a")
	b := hub.Attach("b")
	c := hub.Attach("c")

	sent := Frame{ID: 0x1811B4FA, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}, Extended: true}
	require.NoError(t, a.Send(sent))

	for _, ep := range []Transport{b, c} {
		got, err := ep.Recv(time.Second)
		require.NoError(t, err)
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Data, got.Data)
		assert.True(t, got.Extended)
		assert.False(t, got.Timestamp.IsZero(), "receive timestamp should be set")
	}

	// The sender must not hear its own frame.
	_, err := a.Recv(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrRecvTimeout)
}

func TestHub_RecvTimeout(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ep := hub.Attach("lonely")
	start := time.Now()
	_, err := ep.Recv(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrRecvTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHub_SendAfterClose(t *testing.T) {
	hub := NewHub()
	ep := hub.Attach("a")
	hub.Close()

	err := ep.Send(Frame{ID: 1})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = ep.Recv(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHub_FrameTooLong(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ep := hub.Attach("a")
	err := ep.Send(Frame{ID: 1, Data: make([]byte, 9)})
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestHub_QueueOverflowDrops(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Attach("a")
	b := hub.Attach("b").(*hubEndpoint)

	// Fill b's queue past capacity without draining it; sends must not block.
	for i := 0; i < rxQueueDepth+10; i++ {
		require.NoError(t, a.Send(Frame{ID: uint32(i)}))
	}
	assert.Equal(t, uint64(10), b.Stats().RxDropped)

	// Queued frames are still delivered in order.
	got, err := b.Recv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.ID)
}

func TestHub_Stats(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := hub.Attach("a").(*hubEndpoint)
	b := hub.Attach("b").(*hubEndpoint)

	require.NoError(t, a.Send(Frame{ID: 1}))
	require.NoError(t, a.Send(Frame{ID: 2}))
	_, err := b.Recv(time.Second)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), a.Stats().TxFrames)
	assert.Equal(t, uint64(1), b.Stats().RxFrames)
}
