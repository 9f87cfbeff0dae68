package rist

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AsyncSender is a started sender with context-aware operations.
//
// librist's write only enqueues the block for its own sender thread, so
// Send never parks; the context is checked before the call.
type AsyncSender struct {
	s *session
}

// Connect creates a sender for addr, e.g. "rist://127.0.0.1:5000", and
// starts it.
func Connect(ctx context.Context, profile Profile, addr string) (*AsyncSender, error) {
	return ConnectWithConfig(ctx, profile, addr, nil, nil)
}

// ConnectWithOptions is Connect with peer tuning applied.
func ConnectWithOptions(ctx context.Context, profile Profile, addr string, opts *SenderOptions) (*AsyncSender, error) {
	return ConnectWithConfig(ctx, profile, addr, opts, nil)
}

// ConnectWithConfig is Connect with peer tuning and session
// configuration. A failure or a ctx that ends during construction leaves
// nothing allocated.
func ConnectWithConfig(ctx context.Context, profile Profile, addr string, opts *SenderOptions, cfg *Config) (*AsyncSender, error) {
	if err := ctx.Err(); err != nil {
		return nil, taskFailed(err)
	}

	s, err := newSession(roleSender, profile, cfg)
	if err != nil {
		return nil, err
	}

	err = s.addPeer(addr, opts.peer(), nil)
	if err == nil {
		err = s.start()
	}
	if err == nil && ctx.Err() != nil {
		err = taskFailed(ctx.Err())
	}
	if err != nil {
		s.close()
		logrus.WithFields(logrus.Fields{
			"function": "ConnectWithConfig",
			"address":  addr,
			"error":    err.Error(),
		}).Warn("Failed to connect async sender")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "ConnectWithConfig",
		"address":  addr,
		"profile":  profile.String(),
	}).Info("Async sender connected")
	return &AsyncSender{s: s}, nil
}

// Send queues data and returns the accepted byte count.
func (a *AsyncSender) Send(ctx context.Context, data []byte) (int, error) {
	return a.SendWithFlowID(ctx, data, 0)
}

// SendWithFlowID is Send with an explicit flow id.
func (a *AsyncSender) SendWithFlowID(ctx context.Context, data []byte, flowID uint32) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, taskFailed(err)
	}
	return a.s.write(data, flowID)
}

// RawStats returns the most recent peer statistics, if any have arrived.
func (a *AsyncSender) RawStats() (SenderStats, bool) {
	return a.s.senderStats()
}

// Profile returns the profile the sender was created with.
func (a *AsyncSender) Profile() Profile {
	return a.s.profile
}

// Close releases the native context. Later calls return nil.
func (a *AsyncSender) Close() error {
	a.s.close()
	return nil
}
