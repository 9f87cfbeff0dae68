//go:build unix

package rist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// notifyPipe is the readiness channel between the engine and async
// receivers. The engine writes a byte to the write end whenever a block is
// queued; the read end is non-blocking and registered with the runtime
// poller, so waiting on it parks the goroutine rather than a thread.
type notifyPipe struct {
	r  *os.File
	rc syscall.RawConn
	w  int

	mu   sync.Mutex // guards the read deadline and shut
	shut bool
}

var errPipeShut = errors.New("notify pipe shut down")

// pastDeadline wakes any waiter immediately.
var pastDeadline = time.Unix(1, 0)

func newNotifyPipe() (*notifyPipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("notify pipe: %w", err)
	}
	r := os.NewFile(uintptr(fds[0]), "rist-notify")
	rc, err := r.SyscallConn()
	if err != nil {
		r.Close()
		unix.Close(fds[1])
		return nil, fmt.Errorf("notify pipe: %w", err)
	}
	return &notifyPipe{r: r, rc: rc, w: fds[1]}, nil
}

// writeFD is the descriptor handed to the engine.
func (p *notifyPipe) writeFD() int {
	return p.w
}

// arm sets the deadline for the next wait unless the pipe is shut down.
func (p *notifyPipe) arm(deadline time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shut {
		return false
	}
	_ = p.r.SetReadDeadline(deadline)
	return true
}

// interrupt wakes the current waiter.
func (p *notifyPipe) interrupt() {
	p.mu.Lock()
	_ = p.r.SetReadDeadline(pastDeadline)
	p.mu.Unlock()
}

// shutdown wakes the current waiter and makes every later wait fail. The
// descriptors stay open until close so the engine never writes into a
// pipe without a reader.
func (p *notifyPipe) shutdown() {
	p.mu.Lock()
	p.shut = true
	_ = p.r.SetReadDeadline(pastDeadline)
	p.mu.Unlock()
}

func (p *notifyPipe) isShut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shut
}

// wait parks until the engine signals, ctx is done, deadline passes or
// the pipe is shut down. Pending notifications are drained before it
// returns nil. Only one goroutine may wait at a time.
//
// It returns ctx.Err() when ctx ended the wait, os.ErrDeadlineExceeded
// when deadline did, and errPipeShut after shutdown.
func (p *notifyPipe) wait(ctx context.Context, deadline time.Time) error {
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !p.arm(deadline) {
		return errPipeShut
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		p.interrupt()
	})
	err := p.rc.Read(drainNotify)
	if !stop() {
		<-fired
	}

	switch {
	case p.isShut():
		return errPipeShut
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, os.ErrDeadlineExceeded):
		// The file deadline can fire just before ctx's own timer.
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return context.DeadlineExceeded
		}
		return os.ErrDeadlineExceeded
	}
	return err
}

// drainNotify reads until the pipe is empty. Returning false asks the
// poller to wait for readability and call again.
func drainNotify(fd uintptr) bool {
	var buf [64]byte
	drained := false
	for {
		n, err := unix.Read(int(fd), buf[:])
		if n > 0 {
			drained = true
			continue
		}
		if err == unix.EINTR {
			continue
		}
		// EAGAIN means empty; EOF cannot happen while we hold the write end.
		return drained
	}
}

func (p *notifyPipe) close() error {
	p.shutdown()
	errR := p.r.Close()
	errW := unix.Close(p.w)
	return errors.Join(errR, errW)
}
