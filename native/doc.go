// Package native defines the boundary between the rist bindings and the
// librist streaming engine.
//
// # Overview
//
// [Library] mirrors the C API of librist one call per method. Handles are
// opaque [uintptr]-sized values ([Context], [PeerConfig], [Peer],
// [DataBlock], [Stats]) and every method reports failure the way the C
// library does: a negative or non-zero return code, or a zero handle. No
// method returns a Go error; converting return codes into typed errors is
// the job of the caller, at the call site.
//
// Two implementations exist:
//
//   - librist (build tag "librist"): cgo bindings over the real library.
//   - sim: a pure-Go engine with identical handle semantics that moves
//     payloads over loopback UDP. Used by tests and by builds without cgo.
//
// The factory package picks one based on [Config].
//
// # Thread Safety
//
// Handle values may be copied to and used from any goroutine. librist
// documents its context-level data operations (ReceiverDataRead,
// SenderDataWrite, stats delivery) as safe for concurrent use. Configuration
// calls (ParseAddress, PeerConfigStore, PeerCreate, Start, the notify/fifo
// setters) are not, and callers must serialize them per context.
//
// Callbacks registered with StatsCallbackSet and LoggingSet run on an
// engine-internal thread, never on the caller's goroutine.
package native
