//go:build unix

package rist

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/opd-ai/rist/native/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asyncPair binds a receiver and connects a sender over loopback.
func asyncPair(t *testing.T) (*AsyncReceiver, *AsyncSender, *sim.Engine) {
	t.Helper()
	cfg, eng := newTestConfig(t)
	port := freePort(t)
	ctx := context.Background()

	r, err := BindWithConfig(ctx, ProfileMain, listenAddr(port), nil, cfg)
	require.NoError(t, err)
	s, err := ConnectWithConfig(ctx, ProfileMain, callerAddr(port), nil, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
		r.Close()
	})
	return r, s, eng
}

func TestAsyncRoundTrip(t *testing.T) {
	r, s, _ := asyncPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := s.Send(ctx, []byte("async hello"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	blk, err := r.Recv(ctx)
	require.NoError(t, err)
	require.NotNil(t, blk)
	defer blk.Release()
	assert.Equal(t, []byte("async hello"), blk.Payload())
}

func TestAsyncRecvPreservesOrder(t *testing.T) {
	r, s, _ := asyncPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := byte(0); i < 20; i++ {
		_, err := s.Send(ctx, []byte{i})
		require.NoError(t, err)
	}
	for i := byte(0); i < 20; i++ {
		blk, err := r.Recv(ctx)
		require.NoError(t, err)
		require.NotNil(t, blk)
		assert.Equal(t, []byte{i}, blk.Payload())
		blk.Release()
	}
}

func TestAsyncRecvWaitsForLateData(t *testing.T) {
	r, s, _ := asyncPair(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Send(context.Background(), []byte("late"))
	}()

	blk, err := r.RecvTimeout(2 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, blk)
	defer blk.Release()
	assert.Equal(t, []byte("late"), blk.Payload())
}

func TestAsyncRecvDeadlineIsNoData(t *testing.T) {
	r, _, _ := asyncPair(t)

	start := time.Now()
	blk, err := r.RecvTimeout(30 * time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, blk)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	blk, err = r.Recv(ctx)
	assert.NoError(t, err)
	assert.Nil(t, blk)
}

func TestAsyncRecvCancellation(t *testing.T) {
	r, s, _ := asyncPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := r.Recv(ctx)
	assert.ErrorIs(t, err, ErrTaskFailed)
	assert.ErrorIs(t, err, context.Canceled)

	// The cancelled wait leaves the receiver usable.
	_, err = s.Send(context.Background(), []byte("after cancel"))
	require.NoError(t, err)
	blk, err := r.RecvTimeout(2 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, blk)
	defer blk.Release()
	assert.Equal(t, []byte("after cancel"), blk.Payload())
}

func TestAsyncRecvTimeoutOverflow(t *testing.T) {
	r, _, _ := asyncPair(t)

	_, err := r.RecvTimeout(time.Duration(math.MaxInt32+1) * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeoutOverflow)
	_, err = r.RecvTimeout(-time.Second)
	assert.ErrorIs(t, err, ErrTimeoutOverflow)
}

func TestAsyncTryRecv(t *testing.T) {
	r, s, _ := asyncPair(t)

	blk, err := r.TryRecv()
	assert.NoError(t, err)
	assert.Nil(t, blk)

	_, err = s.Send(context.Background(), []byte("poll"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		blk, err = r.TryRecv()
		return err == nil && blk != nil
	}, 2*time.Second, 5*time.Millisecond)
	blk.Release()
}

func TestAsyncCloseWakesPendingRecv(t *testing.T) {
	r, _, eng := asyncPair(t)

	errc := make(chan error, 1)
	go func() {
		_, err := r.Recv(context.Background())
		errc <- err
	}()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, r.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv not woken by Close")
	}

	assert.NoError(t, r.Close())
	_, err := r.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.TryRecv()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, eng.Live().Contexts, "only the sender is left")
	assert.Zero(t, eng.DoubleFrees())
}

func TestBindFailuresReleaseEverything(t *testing.T) {
	tests := []struct {
		name string
		fail sim.Op
		want error
	}{
		{"context", sim.OpReceiverCreate, ErrContextCreation},
		{"notify fd", sim.OpNotifyFD, ErrContextCreation},
		{"peer", sim.OpPeerCreate, ErrPeerCreation},
		{"start", sim.OpStart, ErrStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, eng := newTestConfig(t)
			eng.FailNext(tt.fail)

			r, err := BindWithConfig(context.Background(), ProfileMain, listenAddr(freePort(t)), nil, cfg)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.want)

			live := eng.Live()
			assert.Zero(t, live.Contexts)
			assert.Zero(t, live.PeerConfigs)
			assert.Zero(t, eng.DoubleFrees())
		})
	}
}

func TestBindRejectsNul(t *testing.T) {
	cfg, eng := newTestConfig(t)
	_, err := BindWithConfig(context.Background(), ProfileMain, "rist://@:1\x00", nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidString)
	assert.Zero(t, eng.Calls(sim.OpParseAddress))
	assert.Zero(t, eng.Live().Contexts)
}

func TestConnectCancelledContext(t *testing.T) {
	cfg, eng := newTestConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := ConnectWithConfig(ctx, ProfileMain, callerAddr(freePort(t)), nil, cfg)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrTaskFailed)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, eng.Calls(sim.OpSenderCreate))
}

func TestConnectFailureReleasesContext(t *testing.T) {
	cfg, eng := newTestConfig(t)
	eng.FailNext(sim.OpPeerCreate)

	_, err := ConnectWithConfig(context.Background(), ProfileMain, callerAddr(freePort(t)), nil, cfg)
	assert.ErrorIs(t, err, ErrPeerCreation)
	assert.Zero(t, eng.Live().Contexts)
}

func TestAsyncSendCancelledContext(t *testing.T) {
	_, s, eng := asyncPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := eng.Calls(sim.OpWrite)
	_, err := s.Send(ctx, []byte("x"))
	assert.ErrorIs(t, err, ErrTaskFailed)
	assert.Equal(t, before, eng.Calls(sim.OpWrite))

	require.NoError(t, s.Close())
	_, err = s.SendWithFlowID(context.Background(), []byte("x"), 4)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAsyncMPEGTSScenario(t *testing.T) {
	r, s, _ := asyncPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	payload := make([]byte, 1316)
	for i := range payload {
		payload[i] = 0x47
	}
	for i := 0; i < 50; i++ {
		_, err := s.Send(ctx, payload)
		require.NoError(t, err)
	}

	received := 0
	for received < 50 {
		blk, err := r.RecvTimeout(200 * time.Millisecond)
		require.NoError(t, err)
		if blk == nil {
			break
		}
		assert.Equal(t, 1316, blk.Len())
		assert.Equal(t, byte(0x47), blk.Payload()[0])
		blk.Release()
		received++
	}
	assert.Greater(t, received, 0)
}

func TestAsyncRecvTimeoutZeroPollsQueuedBlock(t *testing.T) {
	r, s, _ := asyncPair(t)

	_, err := s.Send(context.Background(), []byte("queued"))
	require.NoError(t, err)

	var blk *DataBlock
	require.Eventually(t, func() bool {
		blk, err = r.RecvTimeout(0)
		return err == nil && blk != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("queued"), blk.Payload())
	blk.Release()

	blk, err = r.RecvTimeout(0)
	assert.NoError(t, err)
	assert.Nil(t, blk)
}

func TestAsyncRecvExpiredContextStillPolls(t *testing.T) {
	r, s, _ := asyncPair(t)

	_, err := s.Send(context.Background(), []byte("late"))
	require.NoError(t, err)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	var blk *DataBlock
	require.Eventually(t, func() bool {
		blk, err = r.Recv(ctx)
		return err == nil && blk != nil
	}, 2*time.Second, 5*time.Millisecond)
	blk.Release()
}

func TestAsyncTryRecvDuringClose(t *testing.T) {
	for round := 0; round < 50; round++ {
		cfg, eng := newTestConfig(t)
		r, err := BindWithConfig(context.Background(), ProfileMain, listenAddr(freePort(t)), nil, cfg)
		require.NoError(t, err)

		var unexpected []error
		started := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			close(started)
			for {
				blk, err := r.TryRecv()
				blk.Release()
				if err == nil {
					continue
				}
				if !errors.Is(err, ErrClosed) {
					unexpected = append(unexpected, err)
				}
				return
			}
		}()
		<-started
		require.NoError(t, r.Close())
		<-done

		assert.Empty(t, unexpected, "round %d", round)
		assert.Zero(t, eng.Live().Contexts)
	}
}
