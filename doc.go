// Package rist is a safe Go interface to librist, the Reliable Internet
// Stream Transport library.
//
// It owns every native handle it creates and releases each exactly once,
// maps native return codes to typed errors, and adds a context-aware async
// API on top of librist's blocking poll-with-timeout receive call.
//
// # Blocking API
//
//	recv, err := rist.NewReceiver(rist.ProfileMain)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer recv.Close()
//
//	if err := recv.AddPeer("rist://@:5000"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := recv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	blk, err := recv.Read(time.Second)
//	if err == nil && blk != nil {
//	    process(blk.Payload())
//	    blk.Release()
//	}
//
// # Async API
//
// Bind and Connect return started sessions. AsyncReceiver.Recv parks the
// goroutine on a pipe the engine writes to whenever data is queued, so no
// thread is held inside librist while waiting:
//
//	r, err := rist.Bind(ctx, rist.ProfileMain, "rist://@:5000")
//	...
//	blk, err := r.Recv(ctx) // nil, nil when ctx's deadline passes
//
// AsyncReceiver is also an io.Reader and AsyncSender an io.Writer, for
// treating a flow as a byte stream.
//
// # Errors
//
// Every failure is an *Error carrying an ErrorKind. Use errors.Is with the
// Err* sentinels or KindOf to branch on the kind.
//
// # Engines
//
// Sessions run on a native.Library. Binaries built with the librist tag
// use the real library; otherwise, or with RIST_USE_SIMULATION=true, a
// pure-Go simulation carries payloads over UDP. See package
// native/factory.
package rist
