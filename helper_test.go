package rist

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/opd-ai/rist/native/sim"
	"github.com/stretchr/testify/require"
)

// newTestConfig returns a config on a fresh simulated engine. The stats
// interval is long so tests drive stats explicitly.
func newTestConfig(t *testing.T) (*Config, *sim.Engine) {
	t.Helper()
	eng := sim.New()
	return &Config{Library: eng, StatsInterval: time.Hour}, eng
}

func freePort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())
	return port
}

func listenAddr(port int) string {
	return "rist://@:" + strconv.Itoa(port)
}

func callerAddr(port int) string {
	return "rist://127.0.0.1:" + strconv.Itoa(port)
}

// startedPair returns a started receiver and sender connected over
// loopback on one engine.
func startedPair(t *testing.T) (*Receiver, *Sender, *sim.Engine) {
	t.Helper()
	cfg, eng := newTestConfig(t)
	port := freePort(t)

	recv, err := NewReceiverWithConfig(ProfileMain, cfg)
	require.NoError(t, err)
	require.NoError(t, recv.AddPeer(listenAddr(port)))
	require.NoError(t, recv.Start())

	send, err := NewSenderWithConfig(ProfileMain, cfg)
	require.NoError(t, err)
	require.NoError(t, send.AddPeer(callerAddr(port)))
	require.NoError(t, send.Start())

	t.Cleanup(func() {
		send.Close()
		recv.Close()
	})
	return recv, send, eng
}

// readBlock reads until a block arrives or a second passes.
func readBlock(t *testing.T, recv *Receiver) *DataBlock {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		blk, err := recv.Read(50 * time.Millisecond)
		require.NoError(t, err)
		if blk != nil {
			return blk
		}
	}
	t.Fatal("no block received")
	return nil
}
