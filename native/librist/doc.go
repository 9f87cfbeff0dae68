//go:build librist && cgo

// Package librist binds native.Library to the librist C library.
//
// All cgo in the module lives here. Handles cross the boundary as the
// numeric value of the C pointer; payloads handed to the C side are pinned
// for the duration of the call, and payload views of received blocks alias
// C memory until the block is freed.
//
// Build with:
//
//	go build -tags librist ./...
//
// which requires librist and its pkg-config file to be installed.
package librist
