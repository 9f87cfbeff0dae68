package rist

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"code.hybscloud.com/iox"
)

var (
	_ io.ReadCloser  = (*AsyncReceiver)(nil)
	_ io.WriteCloser = (*AsyncSender)(nil)
)

// TryRead copies received bytes into p without waiting. Bytes left over
// from a block larger than p are served first, in order, before the engine
// is polled again. Each call polls the engine at most once and returns
// iox.ErrWouldBlock when that poll yields no bytes.
//
// Mixing TryRead or Read with Recv on one receiver is not supported: Recv
// bypasses the leftover bytes.
func (r *AsyncReceiver) TryRead(p []byte) (int, error) {
	n, _, err := r.tryRead(p)
	return n, err
}

// tryRead is TryRead that also reports whether the poll consumed a block,
// so Read can poll again instead of waiting after an empty one.
func (r *AsyncReceiver) tryRead(p []byte) (int, bool, error) {
	if r.closed.Load() {
		return 0, false, newError(KindClosed, 0)
	}
	if len(p) == 0 {
		return 0, false, nil
	}

	r.leftMu.Lock()
	defer r.leftMu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, false, nil
	}

	blk, err := r.s.read(0)
	if err != nil {
		return 0, false, err
	}
	if blk == nil {
		return 0, false, iox.ErrWouldBlock
	}
	payload := blk.Payload()
	n := copy(p, payload)
	if n < len(payload) {
		r.leftover = append([]byte(nil), payload[n:]...)
	}
	blk.Release()
	// An empty block carries no stream bytes.
	if n == 0 {
		return 0, true, iox.ErrWouldBlock
	}
	return n, true, nil
}

// Read implements io.Reader. It waits for data, honoring the deadline set
// by SetReadDeadline, and returns io.EOF once the receiver is closed.
func (r *AsyncReceiver) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := r.slot.Acquire(context.Background(), 1); err != nil {
		return 0, err
	}
	defer r.slot.Release(1)

	for {
		n, consumed, err := r.tryRead(p)
		switch {
		case err == nil:
			return n, nil
		case KindOf(err) == KindClosed:
			return 0, io.EOF
		case !iox.IsWouldBlock(err):
			return 0, err
		case consumed:
			// The notification for the next block may already be drained.
			continue
		}

		deadline := r.deadline()
		err = r.pipe.wait(context.Background(), deadline)
		switch {
		case err == nil:
		case errors.Is(err, errPipeShut):
			return 0, io.EOF
		case errors.Is(err, os.ErrDeadlineExceeded):
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				return 0, os.ErrDeadlineExceeded
			}
		default:
			return 0, err
		}
	}
}

// SetReadDeadline bounds future and pending Read calls. A zero value
// removes the bound.
func (r *AsyncReceiver) SetReadDeadline(t time.Time) error {
	if r.closed.Load() {
		return newError(KindClosed, 0)
	}
	r.readDeadline.Store(&t)
	// A pending wait re-arms with the new deadline.
	r.pipe.interrupt()
	return nil
}

func (r *AsyncReceiver) deadline() time.Time {
	if t := r.readDeadline.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Write implements io.Writer with one engine write per call. A negative
// engine result is a KindSend error; a short acceptance is
// io.ErrShortWrite.
func (a *AsyncSender) Write(p []byte) (int, error) {
	n, err := a.s.write(p, 0)
	if err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
