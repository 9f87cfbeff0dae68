// Package factory selects the native.Library implementation a session
// runs on.
//
// Binaries built with the librist tag can talk to the real engine; every
// other build, and any build with simulation requested, gets the pure-Go
// engine from native/sim.
//
// # Configuration
//
// The factory honors these environment variables:
//   - RIST_USE_SIMULATION: "true" or "false" to force or forbid simulation
//   - RIST_STATS_INTERVAL_MS: default stats callback period in milliseconds
//
// # Usage
//
//	lib, cfg := factory.NewLibrary(factory.DefaultConfig())
//	_ = cfg.StatsIntervalMs
//	recv, err := rist.NewReceiverWithConfig(rist.ProfileMain, &rist.Config{Library: lib})
package factory
