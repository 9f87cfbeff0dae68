package rist

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/rist/native"
	"github.com/sirupsen/logrus"
)

// contextHandle owns one native context. Destroy is issued exactly once,
// by release.
//
// The raw handle is a plain integer and may be copied to other goroutines:
// librist documents the data path (read, write, stats) as thread safe for
// a context. Configuration calls are not, and callers serialize them.
type contextHandle struct {
	lib  native.Library
	ctx  native.Context
	once sync.Once
	dead atomic.Bool
}

func newContextHandle(lib native.Library, ctx native.Context) *contextHandle {
	return &contextHandle{lib: lib, ctx: ctx}
}

// raw returns the native handle and whether it is still live.
func (h *contextHandle) raw() (native.Context, bool) {
	if h.dead.Load() {
		return 0, false
	}
	return h.ctx, true
}

// release destroys the context on the first call and reports whether this
// call did so.
func (h *contextHandle) release() bool {
	released := false
	h.once.Do(func() {
		h.dead.Store(true)
		if rc := h.lib.Destroy(h.ctx); rc != 0 {
			logrus.WithFields(logrus.Fields{
				"function": "contextHandle.release",
				"code":     rc,
			}).Warn("librist context destroy reported failure")
		}
		released = true
	})
	return released
}

// withPeerConfig parses addr, hands the parsed config to fn and frees the
// config on every return path. The config never outlives the call.
func withPeerConfig(lib native.Library, addr string, fn func(native.PeerConfig) error) error {
	if strings.IndexByte(addr, 0) >= 0 {
		return newAddrError(KindInvalidString, addr, 0)
	}

	cfg, rc := lib.ParseAddress(addr)
	if rc != 0 || cfg == 0 {
		if cfg != 0 {
			lib.PeerConfigFree(&cfg)
		}
		return newAddrError(KindAddressParse, addr, rc)
	}
	defer lib.PeerConfigFree(&cfg)

	return fn(cfg)
}
