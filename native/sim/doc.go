// Package sim provides a pure-Go stand-in for librist implementing
// native.Library.
//
// # Overview
//
// The engine keeps the C library's contract: handles are opaque integers
// drawn from a table, failures are reported as negative return codes or
// zero handles, payload views alias engine-owned memory until freed, and
// stats/log callbacks fire from engine goroutines. Payloads travel over
// real UDP sockets, so a receiver bound to rist://@:PORT and a sender
// connected to rist://127.0.0.1:PORT exchange data across the loopback
// interface exactly as two librist processes would, minus retransmission.
//
// # Test Hooks
//
// The engine records what tests usually cannot observe through the C API:
//
//	eng := sim.New()
//	eng.FailNext(sim.OpPeerCreate)   // next PeerCreate returns -1
//	...
//	eng.Calls(sim.OpParseAddress)    // how many times the parser ran
//	eng.Live()                       // handles not yet released
//	eng.DoubleFrees()                // releases of unknown handles
//
// # Supported Addresses
//
// rist://@[host]:port listens, rist://host:port connects. The query
// parameters buffer, buffer-min, buffer-max, rtt-min, rtt-max,
// reorder-buffer, bandwidth and secret are honored; secret seals payloads
// with ChaCha20-Poly1305 under a PBKDF2-derived key so peers with
// different secrets cannot exchange data.
package sim
