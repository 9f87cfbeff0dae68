package sim

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/opd-ai/rist/native"
	"github.com/stretchr/testify/require"
)

// freePort reserves and immediately releases a loopback UDP port.
func freePort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())
	return port
}

func listenURL(port int, query string) string {
	u := "rist://@127.0.0.1:" + strconv.Itoa(port)
	if query != "" {
		u += "?" + query
	}
	return u
}

func callerURL(port int, query string) string {
	u := "rist://127.0.0.1:" + strconv.Itoa(port)
	if query != "" {
		u += "?" + query
	}
	return u
}

// addPeer parses addr, creates a peer on ctx and frees the config.
func addPeer(t *testing.T, e *Engine, ctx native.Context, addr string) {
	t.Helper()
	cfg, rc := e.ParseAddress(addr)
	require.Zero(t, rc)
	_, rc = e.PeerCreate(ctx, cfg)
	require.Zero(t, rc)
	require.Zero(t, e.PeerConfigFree(&cfg))
}

// startPair builds a started receiver/sender pair on a fresh loopback port.
func startPair(t *testing.T, e *Engine, query string) (recv, send native.Context) {
	t.Helper()
	port := freePort(t)

	recv, rc := e.ReceiverCreate(native.ProfileMain)
	require.Zero(t, rc)
	addPeer(t, e, recv, listenURL(port, query))
	require.Zero(t, e.Start(recv))

	send, rc = e.SenderCreate(native.ProfileMain, 0)
	require.Zero(t, rc)
	addPeer(t, e, send, callerURL(port, query))
	require.Zero(t, e.Start(send))

	t.Cleanup(func() {
		e.Destroy(send)
		e.Destroy(recv)
	})
	return recv, send
}

// readOne waits up to a second for a block.
func readOne(t *testing.T, e *Engine, ctx native.Context) native.DataBlock {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		blk, rc := e.ReceiverDataRead(ctx, 100)
		require.GreaterOrEqual(t, rc, 0)
		if rc > 0 {
			return blk
		}
	}
	t.Fatal("no block received")
	return 0
}
