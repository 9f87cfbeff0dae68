package sim

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"sync"
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

// defaultFIFOSize matches librist's default output queue depth.
const defaultFIFOSize = 1024

// socketPollInterval bounds how long a read loop blocks before checking
// for shutdown.
const socketPollInterval = 100 * time.Millisecond

// block is the engine-side object behind a native.DataBlock.
type block struct {
	payload []byte
	ts      uint64
	flowID  uint32
}

// simPeer is the engine-side object behind a native.Peer.
type simPeer struct {
	id       uint32
	handle   native.Peer
	settings native.PeerSettings
	listen   bool
	conn     *net.UDPConn
	aead     cipher.AEAD

	sent uint64 // guarded by the owning context's mu
}

// simContext is the engine-side object behind a native.Context.
type simContext struct {
	e       *Engine
	role    role
	profile native.Profile
	flowID  uint32

	mu            sync.Mutex
	started       bool
	destroyed     bool
	peers         []*simPeer
	nextPeerID    uint32
	queue         []*block
	fifoSize      uint32
	notifyFD      int
	statsCb       native.StatsCallback
	statsArg      uintptr
	statsInterval time.Duration
	statsRunning  bool

	received uint64
	lost     uint64
	sent     uint64
	bytesIn  uint64
	bytesOut uint64
	lastFlow uint32

	avail chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

func validProfile(p native.Profile) bool {
	return p == native.ProfileSimple || p == native.ProfileMain || p == native.ProfileAdvanced
}

func newContext(e *Engine, r role, p native.Profile, flowID uint32) *simContext {
	return &simContext{
		e:          e,
		role:       r,
		profile:    p,
		flowID:     flowID,
		nextPeerID: 1,
		fifoSize:   defaultFIFOSize,
		notifyFD:   -1,
		avail:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// ReceiverCreate implements native.Library.
func (e *Engine) ReceiverCreate(profile native.Profile) (native.Context, int) {
	if e.enter(OpReceiverCreate) || !validProfile(profile) {
		return 0, -1
	}
	c := newContext(e, roleReceiver, profile, 0)
	return native.Context(e.register(c)), 0
}

// SenderCreate implements native.Library. A zero flow id is replaced by a
// random even one, as librist does.
func (e *Engine) SenderCreate(profile native.Profile, flowID uint32) (native.Context, int) {
	if e.enter(OpSenderCreate) || !validProfile(profile) {
		return 0, -1
	}
	if flowID == 0 {
		flowID = rand.Uint32() &^ 1
		if flowID == 0 {
			flowID = 2
		}
	}
	c := newContext(e, roleSender, profile, flowID)
	return native.Context(e.register(c)), 0
}

// PeerCreate implements native.Library.
func (e *Engine) PeerCreate(ctx native.Context, h native.PeerConfig) (native.Peer, int) {
	if e.enter(OpPeerCreate) {
		return 0, -1
	}
	c := e.context(ctx)
	cfg, ok := e.lookup(uintptr(h)).(*peerConfig)
	if c == nil || !ok {
		return 0, -1
	}

	peer, err := c.openPeer(cfg)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.PeerCreate",
			"role":     c.role.String(),
			"address":  cfg.settings.Address,
			"error":    err.Error(),
		}).Warn("Simulated peer creation failed")
		e.logf(native.LogError, "peer %s: %v", cfg.settings.Address, err)
		return 0, -1
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		_ = peer.conn.Close()
		return 0, -1
	}
	peer.id = c.nextPeerID
	c.nextPeerID++
	peer.handle = native.Peer(e.register(peer))
	c.peers = append(c.peers, peer)
	if c.started {
		c.startPeerLocked(peer)
	}
	c.mu.Unlock()

	e.logf(native.LogInfo, "%s peer %d added for %s", c.role, peer.id, cfg.settings.Address)
	return peer.handle, 0
}

func (c *simContext) openPeer(cfg *peerConfig) (*simPeer, error) {
	peer := &simPeer{settings: cfg.settings, listen: cfg.listen}
	if cfg.secret != "" {
		aead, err := newSealer(cfg.secret)
		if err != nil {
			return nil, err
		}
		peer.aead = aead
	}

	addr := net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
	switch {
	case c.role == roleReceiver && cfg.listen:
		laddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, err
		}
		conn, err := net.ListenUDP("udp", laddr)
		if err != nil {
			return nil, err
		}
		peer.conn = conn
	case c.role == roleSender && !cfg.listen:
		raddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, err
		}
		conn, err := net.DialUDP("udp", nil, raddr)
		if err != nil {
			return nil, err
		}
		peer.conn = conn
	default:
		return nil, fmt.Errorf("%s in %s mode is not simulated", c.role, modeName(cfg.listen))
	}
	return peer, nil
}

func modeName(listen bool) string {
	if listen {
		return "listen"
	}
	return "caller"
}

// Start implements native.Library.
func (e *Engine) Start(ctx native.Context) int {
	if e.enter(OpStart) {
		return -1
	}
	c := e.context(ctx)
	if c == nil {
		return -1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.destroyed {
		return -1
	}
	c.started = true
	for _, p := range c.peers {
		c.startPeerLocked(p)
	}
	c.startStatsLocked()

	e.logf(native.LogInfo, "%s context started with %d peer(s)", c.role, len(c.peers))
	return 0
}

func (c *simContext) startPeerLocked(p *simPeer) {
	if c.role != roleReceiver {
		return
	}
	c.wg.Add(1)
	go c.readLoop(p)
}

func (c *simContext) readLoop(p *simPeer) {
	defer c.wg.Done()

	buf := make([]byte, 65536)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_ = p.conn.SetReadDeadline(time.Now().Add(socketPollInterval))
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.e.logf(native.LogWarn, "peer %d read: %v", p.id, err)
			continue
		}

		flowID, ts, payload, err := decodePacket(p.aead, buf[:n])
		if err != nil {
			c.mu.Lock()
			c.lost++
			c.mu.Unlock()
			c.e.logf(native.LogWarn, "peer %d dropped packet: %v", p.id, err)
			continue
		}
		c.deliver(&block{payload: payload, ts: ts, flowID: flowID})
	}
}

// deliver queues a block and raises the data-available signals.
func (c *simContext) deliver(b *block) {
	c.mu.Lock()
	if c.fifoSize > 0 && uint32(len(c.queue)) >= c.fifoSize {
		c.lost++
		c.mu.Unlock()
		c.e.logf(native.LogWarn, "output fifo full, dropping block")
		return
	}
	c.queue = append(c.queue, b)
	c.received++
	c.bytesIn += uint64(len(b.payload))
	c.lastFlow = b.flowID
	fd := c.notifyFD
	c.mu.Unlock()

	c.signal()
	if fd >= 0 {
		notifyWrite(fd)
	}
}

func (c *simContext) signal() {
	select {
	case c.avail <- struct{}{}:
	default:
	}
}

// Destroy implements native.Library.
func (e *Engine) Destroy(ctx native.Context) int {
	c, ok := releaseAs[*simContext](e, uintptr(ctx), "context")
	if !ok {
		return -1
	}

	c.mu.Lock()
	c.destroyed = true
	peers := c.peers
	c.peers = nil
	c.queue = nil
	c.mu.Unlock()

	close(c.done)
	for _, p := range peers {
		_ = p.conn.Close()
		releaseAs[*simPeer](e, uintptr(p.handle), "peer")
	}
	c.wg.Wait()

	e.logf(native.LogInfo, "%s context destroyed", c.role)
	return 0
}

// ReceiverDataRead implements native.Library.
func (e *Engine) ReceiverDataRead(ctx native.Context, timeoutMs int) (native.DataBlock, int) {
	if e.enter(OpRead) {
		return 0, -1
	}
	c := e.context(ctx)
	if c == nil || c.role != roleReceiver || timeoutMs < 0 {
		return 0, -1
	}

	var timeout <-chan time.Time
	if timeoutMs > 0 {
		timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		c.mu.Lock()
		if c.destroyed || !c.started {
			c.mu.Unlock()
			return 0, -1
		}
		if len(c.queue) > 0 {
			b := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			remaining := len(c.queue)
			c.mu.Unlock()

			if remaining > 0 {
				c.signal()
			}
			return native.DataBlock(e.register(b)), remaining + 1
		}
		c.mu.Unlock()

		if timeout == nil {
			return 0, 0
		}
		select {
		case <-c.avail:
		case <-timeout:
			return 0, 0
		case <-c.done:
			return 0, -1
		}
	}
}

// ReceiverDataBlock implements native.Library.
func (e *Engine) ReceiverDataBlock(h native.DataBlock) (native.BlockView, bool) {
	if e.enter(OpBlockDescribe) {
		return native.BlockView{}, false
	}
	b, ok := e.lookup(uintptr(h)).(*block)
	if !ok {
		return native.BlockView{}, false
	}
	return native.BlockView{Payload: b.payload, Timestamp: b.ts, FlowID: b.flowID}, true
}

// ReceiverDataBlockFree implements native.Library.
func (e *Engine) ReceiverDataBlockFree(h *native.DataBlock) {
	if h == nil || *h == 0 {
		return
	}
	releaseAs[*block](e, uintptr(*h), "data_block")
	*h = 0
}

// ReceiverNotifyFDSet implements native.Library.
func (e *Engine) ReceiverNotifyFDSet(ctx native.Context, fd int) int {
	if e.enter(OpNotifyFD) || !notifySupported {
		return -1
	}
	c := e.context(ctx)
	if c == nil || c.role != roleReceiver || fd < 0 {
		return -1
	}
	c.mu.Lock()
	c.notifyFD = fd
	c.mu.Unlock()
	return 0
}

// ReceiverSetOutputFIFOSize implements native.Library. Sizes must be a
// power of two; zero removes the bound.
func (e *Engine) ReceiverSetOutputFIFOSize(ctx native.Context, size uint32) int {
	if e.enter(OpFIFOSize) {
		return -1
	}
	c := e.context(ctx)
	if c == nil || c.role != roleReceiver || size&(size-1) != 0 {
		return -1
	}
	c.mu.Lock()
	c.fifoSize = size
	c.mu.Unlock()
	return 0
}

// SenderDataWrite implements native.Library.
func (e *Engine) SenderDataWrite(ctx native.Context, blk *native.OutBlock) int {
	if e.enter(OpWrite) {
		return -1
	}
	c := e.context(ctx)
	if c == nil || c.role != roleSender || blk == nil || len(blk.Payload) > maxPayload {
		return -1
	}

	flowID := blk.FlowID
	if flowID == 0 {
		flowID = c.flowID
	}
	ts := ntpNow()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.destroyed {
		return -1
	}
	for _, p := range c.peers {
		pkt, err := encodePacket(p.aead, flowID, ts, blk.Payload)
		if err != nil {
			return -1
		}
		if _, err := p.conn.Write(pkt); err != nil {
			// Nobody listening yet; a real sender keeps going too.
			e.logf(native.LogDebug, "peer %d write: %v", p.id, err)
			continue
		}
		p.sent++
	}
	c.sent++
	c.bytesOut += uint64(len(blk.Payload))
	return len(blk.Payload)
}

// PeerSettings returns the settings of every peer registered on ctx, in
// creation order.
func (e *Engine) PeerSettings(ctx native.Context) []native.PeerSettings {
	c := e.context(ctx)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]native.PeerSettings, 0, len(c.peers))
	for _, p := range c.peers {
		out = append(out, p.settings)
	}
	return out
}
