package rist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// AsyncReceiver is a started receiver whose receive operations park the
// calling goroutine on the engine's readiness pipe instead of blocking
// inside the engine. Any number of receivers can wait on few threads.
//
// All methods are safe for concurrent use. Receives are served one at a
// time in arrival order of the callers.
type AsyncReceiver struct {
	s    *session
	pipe *notifyPipe
	slot *semaphore.Weighted // one waiter on the pipe at a time

	leftMu   sync.Mutex
	leftover []byte

	readDeadline atomic.Pointer[time.Time]
	closed       atomic.Bool
}

// Bind creates a receiver listening on addr, e.g. "rist://@:5000", and
// starts it.
func Bind(ctx context.Context, profile Profile, addr string) (*AsyncReceiver, error) {
	return BindWithConfig(ctx, profile, addr, nil, nil)
}

// BindWithOptions is Bind with peer tuning applied.
func BindWithOptions(ctx context.Context, profile Profile, addr string, opts *ReceiverOptions) (*AsyncReceiver, error) {
	return BindWithConfig(ctx, profile, addr, opts, nil)
}

// BindWithConfig is Bind with peer tuning and session configuration. Every
// resource built so far is released if any step fails or ctx is done
// before the receiver is running.
func BindWithConfig(ctx context.Context, profile Profile, addr string, opts *ReceiverOptions, cfg *Config) (*AsyncReceiver, error) {
	if err := ctx.Err(); err != nil {
		return nil, taskFailed(err)
	}

	s, err := newSession(roleReceiver, profile, cfg)
	if err != nil {
		return nil, err
	}

	pipe, err := newNotifyPipe()
	if err != nil {
		s.close()
		return nil, &Error{Kind: KindContextCreation, Err: err}
	}
	r := &AsyncReceiver{
		s:    s,
		pipe: pipe,
		slot: semaphore.NewWeighted(1),
	}

	if err := r.setup(ctx, addr, opts); err != nil {
		r.teardown()
		logrus.WithFields(logrus.Fields{
			"function": "BindWithConfig",
			"address":  addr,
			"error":    err.Error(),
		}).Warn("Failed to bind async receiver")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "BindWithConfig",
		"address":  addr,
		"profile":  profile.String(),
	}).Info("Async receiver bound")
	return r, nil
}

func (r *AsyncReceiver) setup(ctx context.Context, addr string, opts *ReceiverOptions) error {
	nctx, err := r.s.context()
	if err != nil {
		return err
	}
	if rc := r.s.lib.ReceiverNotifyFDSet(nctx, r.pipe.writeFD()); rc != 0 {
		return &Error{Kind: KindContextCreation, Code: rc, Err: fmt.Errorf("notify fd %d rejected", r.pipe.writeFD())}
	}
	if err := r.s.addPeer(addr, opts.peer(), opts.fifo()); err != nil {
		return err
	}
	if err := r.s.start(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return taskFailed(err)
	}
	return nil
}

// teardown destroys the context before closing the pipe so the engine
// never writes to a closed descriptor.
func (r *AsyncReceiver) teardown() {
	r.pipe.shutdown()
	r.s.close()
	if err := r.pipe.close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "AsyncReceiver.teardown",
			"error":    err.Error(),
		}).Warn("Failed to close notify pipe")
	}
}

// Recv waits for the next block. It returns nil, nil when ctx's deadline
// passes first, a KindTaskFailed error wrapping context.Canceled when ctx
// is cancelled, and a KindClosed error once the receiver is closed.
func (r *AsyncReceiver) Recv(ctx context.Context) (*DataBlock, error) {
	if r.closed.Load() {
		return nil, newError(KindClosed, 0)
	}
	if err := r.slot.Acquire(ctx, 1); err != nil {
		// An expired deadline still gets one poll when the slot is free.
		if !errors.Is(err, context.DeadlineExceeded) || !r.slot.TryAcquire(1) {
			return nil, recvContextErr(err)
		}
	}
	defer r.slot.Release(1)

	for {
		if r.closed.Load() {
			return nil, newError(KindClosed, 0)
		}
		blk, err := r.s.read(0)
		if err != nil || blk != nil {
			return blk, err
		}

		// Nothing queued: park until the engine signals. A wakeup
		// followed by an empty poll is a benign race and just loops.
		err = r.pipe.wait(ctx, time.Time{})
		switch {
		case err == nil, errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, errPipeShut):
			return nil, newError(KindClosed, 0)
		default:
			return nil, recvContextErr(err)
		}
	}
}

// recvContextErr maps a context error to the receive result: deadline
// elapse is no data, anything else is a failed wait.
func recvContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return taskFailed(err)
}

// RecvTimeout is Recv bounded by timeout. A zero timeout polls once
// without waiting. Timeouts the engine cannot represent fail with
// KindTimeoutOverflow.
func (r *AsyncReceiver) RecvTimeout(timeout time.Duration) (*DataBlock, error) {
	if _, err := timeoutMillis(timeout); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.Recv(ctx)
}

// TryRecv returns a queued block without waiting, or nil, nil.
func (r *AsyncReceiver) TryRecv() (*DataBlock, error) {
	if r.closed.Load() {
		return nil, newError(KindClosed, 0)
	}
	return r.s.read(0)
}

// RawStats returns the most recent flow statistics, if any have arrived.
func (r *AsyncReceiver) RawStats() (ReceiverStats, bool) {
	return r.s.receiverStats()
}

// Profile returns the profile the receiver was created with.
func (r *AsyncReceiver) Profile() Profile {
	return r.s.profile
}

// Close wakes pending receives, waits for the one in progress to return
// and releases the native context and the pipe. Later calls return nil.
func (r *AsyncReceiver) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.pipe.shutdown()

	_ = r.slot.Acquire(context.Background(), 1)
	defer r.slot.Release(1)

	r.leftMu.Lock()
	r.leftover = nil
	r.leftMu.Unlock()

	r.teardown()
	return nil
}
