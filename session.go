package rist

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/rist/native"
	"github.com/sirupsen/logrus"
)

type role int

const (
	roleReceiver role = iota
	roleSender
)

func (r role) String() string {
	if r == roleSender {
		return "sender"
	}
	return "receiver"
}

// session is the state shared by the blocking and async endpoints: one
// context, its stats sink and the started flag.
type session struct {
	lib     native.Library
	role    role
	profile Profile
	handle  *contextHandle
	sink    *statsSink
	sinkKey uintptr

	mu      sync.Mutex   // serializes configuration calls
	dataMu  sync.RWMutex // shared by read and write, exclusive for release
	started atomic.Bool
	closed  atomic.Bool
}

// newSession creates the context for r and registers its stats callback.
// Nothing is left allocated on failure.
func newSession(r role, profile Profile, cfg *Config) (*session, error) {
	lib, intervalMs, flowID := cfg.resolve()

	var (
		ctx native.Context
		rc  int
	)
	if r == roleSender {
		ctx, rc = lib.SenderCreate(profile.native(), flowID)
	} else {
		ctx, rc = lib.ReceiverCreate(profile.native())
	}
	if rc != 0 || ctx == 0 {
		if ctx != 0 {
			lib.Destroy(ctx)
		}
		logrus.WithFields(logrus.Fields{
			"function": "newSession",
			"role":     r.String(),
			"profile":  profile.String(),
			"code":     rc,
		}).Error("Failed to create librist context")
		return nil, newError(KindContextCreation, rc)
	}

	s := &session{
		lib:     lib,
		role:    r,
		profile: profile,
		handle:  newContextHandle(lib, ctx),
		sink:    &statsSink{role: r},
	}
	s.sinkKey = registerSink(s.sink)

	if rc := lib.StatsCallbackSet(ctx, intervalMs, statsCallback(lib), s.sinkKey); rc != 0 {
		s.handle.release()
		unregisterSink(s.sinkKey)
		logrus.WithFields(logrus.Fields{
			"function": "newSession",
			"role":     r.String(),
			"code":     rc,
		}).Error("Failed to register stats callback")
		return nil, newError(KindContextCreation, rc)
	}

	logrus.WithFields(logrus.Fields{
		"function":          "newSession",
		"role":              r.String(),
		"profile":           profile.String(),
		"stats_interval_ms": intervalMs,
	}).Debug("Session created")
	return s, nil
}

// context returns the live native handle or a KindClosed error.
func (s *session) context() (native.Context, error) {
	ctx, ok := s.handle.raw()
	if !ok {
		return 0, newError(KindClosed, 0)
	}
	return ctx, nil
}

// dataContext is context plus the started check required by the data
// path.
func (s *session) dataContext() (native.Context, error) {
	ctx, err := s.context()
	if err != nil {
		return 0, err
	}
	if !s.started.Load() {
		return 0, newError(KindNotStarted, 0)
	}
	return ctx, nil
}

// addPeer parses addr, applies the explicitly set options and registers
// the peer. fifo, when set, resizes the receiver output queue first.
func (s *session) addPeer(addr string, opts *PeerOptions, fifo *uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.context()
	if err != nil {
		return err
	}

	err = withPeerConfig(s.lib, addr, func(cfg native.PeerConfig) error {
		if !opts.empty() {
			settings, rc := s.lib.PeerConfigLoad(cfg)
			if rc != 0 {
				return newAddrError(KindPeerCreation, addr, rc)
			}
			opts.apply(&settings)
			if rc := s.lib.PeerConfigStore(cfg, settings); rc != 0 {
				return newAddrError(KindPeerCreation, addr, rc)
			}
		}
		if fifo != nil {
			if rc := s.lib.ReceiverSetOutputFIFOSize(ctx, *fifo); rc != 0 {
				return newAddrError(KindPeerCreation, addr, rc)
			}
		}
		if _, rc := s.lib.PeerCreate(ctx, cfg); rc != 0 {
			return newAddrError(KindPeerCreation, addr, rc)
		}
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "session.addPeer",
			"role":     s.role.String(),
			"address":  addr,
			"error":    err.Error(),
		}).Warn("Failed to add peer")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "session.addPeer",
		"role":     s.role.String(),
		"address":  addr,
	}).Info("Peer added")
	return nil
}

func (s *session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.context()
	if err != nil {
		return err
	}
	if s.started.Load() {
		return newError(KindAlreadyStarted, 0)
	}
	if rc := s.lib.Start(ctx); rc != 0 {
		logrus.WithFields(logrus.Fields{
			"function": "session.start",
			"role":     s.role.String(),
			"code":     rc,
		}).Error("Failed to start librist context")
		return newError(KindStart, rc)
	}
	s.started.Store(true)

	logrus.WithFields(logrus.Fields{
		"function": "session.start",
		"role":     s.role.String(),
	}).Info("Session started")
	return nil
}

// timeoutMillis converts d to whole milliseconds, truncating. Values the
// engine's int timeout cannot hold are rejected.
func timeoutMillis(d time.Duration) (int, error) {
	ms := d.Milliseconds()
	if d < 0 || ms > math.MaxInt32 {
		return 0, newError(KindTimeoutOverflow, 0)
	}
	return int(ms), nil
}

// read polls the engine for one block. A nil block with a nil error means
// nothing arrived within timeoutMs.
func (s *session) read(timeoutMs int) (*DataBlock, error) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()

	ctx, err := s.dataContext()
	if err != nil {
		return nil, err
	}

	h, rc := s.lib.ReceiverDataRead(ctx, timeoutMs)
	if rc < 0 {
		return nil, newError(KindRead, rc)
	}
	if rc == 0 || h == 0 {
		if h != 0 {
			s.lib.ReceiverDataBlockFree(&h)
		}
		return nil, nil
	}
	blk := newDataBlock(s.lib, h)
	if blk == nil {
		return nil, newError(KindRead, rc)
	}
	return blk, nil
}

// write hands data to the engine and returns the accepted byte count.
func (s *session) write(data []byte, flowID uint32) (int, error) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()

	ctx, err := s.dataContext()
	if err != nil {
		return 0, err
	}

	out := native.OutBlock{Payload: data, FlowID: flowID}
	n := s.lib.SenderDataWrite(ctx, &out)
	if n < 0 {
		return 0, newError(KindSend, n)
	}
	return n, nil
}

// close destroys the context and drops the stats sink. It waits for data
// calls already inside the engine. Only the first call has any effect.
func (s *session) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.dataMu.Lock()
	s.handle.release()
	s.dataMu.Unlock()
	s.mu.Unlock()
	// The engine has joined its threads, so no callback can still be
	// holding the key.
	unregisterSink(s.sinkKey)

	logrus.WithFields(logrus.Fields{
		"function": "session.close",
		"role":     s.role.String(),
	}).Debug("Session closed")
}

func (s *session) receiverStats() (ReceiverStats, bool) {
	return s.sink.receiver.load()
}

func (s *session) senderStats() (SenderStats, bool) {
	return s.sink.sender.load()
}
