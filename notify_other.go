//go:build !unix

package rist

import (
	"context"
	"errors"
	"time"
)

// notifyPipe is unavailable without unix pipes; async receivers cannot be
// bound on this platform.
type notifyPipe struct{}

var errPipeShut = errors.New("notify pipe shut down")

func newNotifyPipe() (*notifyPipe, error) {
	return nil, errors.New("readiness notification requires a unix platform")
}

func (p *notifyPipe) writeFD() int { return -1 }
func (p *notifyPipe) wait(context.Context, time.Time) error { return errPipeShut }
func (p *notifyPipe) interrupt() {}
func (p *notifyPipe) shutdown() {}
func (p *notifyPipe) close() error { return nil }
