//go:build unix

package sim

import (
	"testing"
	"time"

	"github.com/opd-ai/rist/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNotifyFDWrittenOnDelivery(t *testing.T) {
	e := New()
	recv, send := startPair(t, e, "")

	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.Zero(t, e.ReceiverNotifyFDSet(recv, fds[1]))
	assert.Equal(t, -1, e.ReceiverNotifyFDSet(send, fds[1]), "senders have no output queue")

	require.Equal(t, 2, e.SenderDataWrite(send, &native.OutBlock{Payload: []byte("hi")}))

	buf := make([]byte, 8)
	deadline := time.Now().Add(time.Second)
	for {
		n, err := unix.Read(fds[0], buf)
		if err == nil && n > 0 {
			break
		}
		require.ErrorIs(t, err, unix.EAGAIN)
		require.True(t, time.Now().Before(deadline), "notify fd never written")
		time.Sleep(5 * time.Millisecond)
	}

	blk := readOne(t, e, recv)
	e.ReceiverDataBlockFree(&blk)
}
