package sim

import (
	"fmt"
	"sync"

	"github.com/opd-ai/rist/native"
	"github.com/sirupsen/logrus"
)

// Op names an engine entry point for fault injection and call counting.
type Op string

const (
	OpReceiverCreate Op = "receiver_create"
	OpSenderCreate   Op = "sender_create"
	OpParseAddress   Op = "parse_address"
	OpPeerConfigLoad Op = "peer_config_load"
	OpPeerConfigSet  Op = "peer_config_store"
	OpPeerCreate     Op = "peer_create"
	OpStart          Op = "start"
	OpRead           Op = "receiver_data_read"
	OpBlockDescribe  Op = "data_block_describe"
	OpWrite          Op = "sender_data_write"
	OpNotifyFD       Op = "notify_fd_set"
	OpFIFOSize       Op = "fifo_size_set"
	OpStatsCallback  Op = "stats_callback_set"
	OpLogging        Op = "logging_set"
)

// LiveCounts reports handles allocated by the engine and not yet released.
type LiveCounts struct {
	Contexts    int
	PeerConfigs int
	Blocks      int
	Stats       int
}

// Engine is a simulated librist instance. The zero value is not usable;
// call New.
type Engine struct {
	mu          sync.Mutex
	next        uintptr
	objects     map[uintptr]any
	calls       map[Op]int
	failures    map[Op]int
	doubleFrees int

	logMu    sync.RWMutex
	logLevel native.LogLevel
	logCb    native.LogCallback
	logArg   uintptr
}

var _ native.Library = (*Engine)(nil)

// New creates an empty engine.
func New() *Engine {
	logrus.WithFields(logrus.Fields{
		"function": "sim.New",
	}).Debug("Creating simulated librist engine")

	return &Engine{
		next:     1,
		objects:  make(map[uintptr]any),
		calls:    make(map[Op]int),
		failures: make(map[Op]int),
		logLevel: native.LogDisable,
	}
}

// FailNext makes the next call of op report failure.
func (e *Engine) FailNext(op Op) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[op]++
}

// Calls returns how many times op was entered.
func (e *Engine) Calls(op Op) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

// DoubleFrees returns how many release calls named an unknown handle.
func (e *Engine) DoubleFrees() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doubleFrees
}

// Live counts outstanding handles by kind.
func (e *Engine) Live() LiveCounts {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lc LiveCounts
	for _, obj := range e.objects {
		switch obj.(type) {
		case *simContext:
			lc.Contexts++
		case *peerConfig:
			lc.PeerConfigs++
		case *block:
			lc.Blocks++
		case *statsObject:
			lc.Stats++
		}
	}
	return lc
}

// enter records a call and reports whether an injected failure applies.
func (e *Engine) enter(op Op) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls[op]++
	if e.failures[op] > 0 {
		e.failures[op]--
		return true
	}
	return false
}

func (e *Engine) register(obj any) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	e.objects[id] = obj
	return id
}

func (e *Engine) lookup(id uintptr) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.objects[id]
}

// releaseAs removes id from the table if it names a T. Anything else is
// counted as a double free, which would corrupt the heap in the C library.
func releaseAs[T any](e *Engine, id uintptr, what string) (T, bool) {
	e.mu.Lock()
	obj, ok := e.objects[id].(T)
	if ok {
		delete(e.objects, id)
	} else {
		e.doubleFrees++
	}
	e.mu.Unlock()

	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "releaseAs",
			"handle":   id,
			"kind":     what,
		}).Error("Release of unknown or already released handle")
	}
	return obj, ok
}

func (e *Engine) context(ctx native.Context) *simContext {
	c, _ := e.lookup(uintptr(ctx)).(*simContext)
	return c
}

// LoggingSet implements native.Library.
func (e *Engine) LoggingSet(level native.LogLevel, cb native.LogCallback, arg uintptr) int {
	if e.enter(OpLogging) {
		return -1
	}
	switch level {
	case native.LogDisable, native.LogError, native.LogWarn, native.LogNotice,
		native.LogInfo, native.LogDebug, native.LogSimulate:
	default:
		return -1
	}

	e.logMu.Lock()
	e.logLevel = level
	e.logCb = cb
	e.logArg = arg
	e.logMu.Unlock()
	return 0
}

// logf delivers a log line through the installed callback.
func (e *Engine) logf(level native.LogLevel, format string, args ...any) {
	e.logMu.RLock()
	cb, arg, limit := e.logCb, e.logArg, e.logLevel
	e.logMu.RUnlock()

	if cb == nil || limit == native.LogDisable || level > limit {
		return
	}
	cb(arg, level, fmt.Sprintf(format, args...))
}
