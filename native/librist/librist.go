//go:build librist && cgo

package librist

/*
#cgo pkg-config: librist
#include <stdlib.h>
#include <stdint.h>
#include <librist/librist.h>

extern int goStatsCallback(void *arg, struct rist_stats *stats);
extern int goLogCallback(void *arg, enum rist_log_level level, char *msg);

static int rist_stats_trampoline(void *arg, const struct rist_stats *stats) {
	return goStatsCallback(arg, (struct rist_stats *)stats);
}

static int rist_log_trampoline(void *arg, enum rist_log_level level, const char *msg) {
	return goLogCallback(arg, level, (char *)msg);
}

static int set_stats_callback(struct rist_ctx *ctx, int interval, uintptr_t key) {
	return rist_stats_callback_set(ctx, interval, rist_stats_trampoline, (void *)key);
}

static int set_logging(struct rist_logging_settings **settings, enum rist_log_level level, uintptr_t key) {
	return rist_logging_set(settings, level, rist_log_trampoline, (void *)key, NULL, NULL);
}
*/
import "C"

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/opd-ai/rist/native"
)

// Library is the cgo implementation of native.Library.
type Library struct{}

var _ native.Library = Library{}

// New returns the librist binding.
func New() Library {
	return Library{}
}

// callbacks maps the integer keys handed to librist as callback arguments
// to the Go callbacks and their caller-supplied arguments.
var (
	callbackMu   sync.RWMutex
	nextKey      uintptr = 1
	statsTargets         = make(map[uintptr]statsTarget)
	ctxStatsKeys         = make(map[native.Context]uintptr)
	logTarget    logTargetT
	logSettings  *C.struct_rist_logging_settings
)

type statsTarget struct {
	cb  native.StatsCallback
	arg uintptr
}

type logTargetT struct {
	cb  native.LogCallback
	arg uintptr
}

func ctxPtr(ctx native.Context) *C.struct_rist_ctx {
	return (*C.struct_rist_ctx)(unsafe.Pointer(ctx))
}

// ReceiverCreate implements native.Library.
func (Library) ReceiverCreate(profile native.Profile) (native.Context, int) {
	var ctx *C.struct_rist_ctx
	callbackMu.RLock()
	ls := logSettings
	callbackMu.RUnlock()
	ret := C.rist_receiver_create(&ctx, C.enum_rist_profile(profile), ls)
	return native.Context(unsafe.Pointer(ctx)), int(ret)
}

// SenderCreate implements native.Library.
func (Library) SenderCreate(profile native.Profile, flowID uint32) (native.Context, int) {
	var ctx *C.struct_rist_ctx
	callbackMu.RLock()
	ls := logSettings
	callbackMu.RUnlock()
	ret := C.rist_sender_create(&ctx, C.enum_rist_profile(profile), C.uint32_t(flowID), ls)
	return native.Context(unsafe.Pointer(ctx)), int(ret)
}

// ParseAddress implements native.Library.
func (Library) ParseAddress(url string) (native.PeerConfig, int) {
	curl := C.CString(url)
	defer C.free(unsafe.Pointer(curl))

	var cfg *C.struct_rist_peer_config
	ret := C.rist_parse_address2(curl, &cfg)
	return native.PeerConfig(unsafe.Pointer(cfg)), int(ret)
}

func cfgPtr(cfg native.PeerConfig) *C.struct_rist_peer_config {
	return (*C.struct_rist_peer_config)(unsafe.Pointer(cfg))
}

// PeerConfigLoad implements native.Library.
func (Library) PeerConfigLoad(h native.PeerConfig) (native.PeerSettings, int) {
	cfg := cfgPtr(h)
	if cfg == nil {
		return native.PeerSettings{}, -1
	}
	return native.PeerSettings{
		Address:               C.GoString(&cfg.address[0]),
		RecoveryMode:          native.RecoveryMode(cfg.recovery_mode),
		RecoveryMaxBitrate:    uint32(cfg.recovery_maxbitrate),
		RecoveryLengthMin:     uint32(cfg.recovery_length_min),
		RecoveryLengthMax:     uint32(cfg.recovery_length_max),
		RecoveryReorderBuffer: uint32(cfg.recovery_reorder_buffer),
		RecoveryRTTMin:        uint32(cfg.recovery_rtt_min),
		RecoveryRTTMax:        uint32(cfg.recovery_rtt_max),
	}, 0
}

// PeerConfigStore implements native.Library. The address is left as
// parsed.
func (Library) PeerConfigStore(h native.PeerConfig, s native.PeerSettings) int {
	cfg := cfgPtr(h)
	if cfg == nil {
		return -1
	}
	cfg.recovery_mode = C.enum_rist_recovery_mode(s.RecoveryMode)
	cfg.recovery_maxbitrate = C.uint32_t(s.RecoveryMaxBitrate)
	cfg.recovery_length_min = C.uint32_t(s.RecoveryLengthMin)
	cfg.recovery_length_max = C.uint32_t(s.RecoveryLengthMax)
	cfg.recovery_reorder_buffer = C.uint32_t(s.RecoveryReorderBuffer)
	cfg.recovery_rtt_min = C.uint32_t(s.RecoveryRTTMin)
	cfg.recovery_rtt_max = C.uint32_t(s.RecoveryRTTMax)
	return 0
}

// PeerConfigFree implements native.Library.
func (Library) PeerConfigFree(h *native.PeerConfig) int {
	if h == nil || *h == 0 {
		return 0
	}
	cfg := cfgPtr(*h)
	ret := C.rist_peer_config_free2(&cfg)
	*h = 0
	return int(ret)
}

// PeerCreate implements native.Library.
func (Library) PeerCreate(ctx native.Context, h native.PeerConfig) (native.Peer, int) {
	var peer *C.struct_rist_peer
	ret := C.rist_peer_create(ctxPtr(ctx), &peer, cfgPtr(h))
	return native.Peer(unsafe.Pointer(peer)), int(ret)
}

// Start implements native.Library.
func (Library) Start(ctx native.Context) int {
	return int(C.rist_start(ctxPtr(ctx)))
}

// Destroy implements native.Library. Callback registrations for the
// context are dropped after librist has joined its threads.
func (Library) Destroy(ctx native.Context) int {
	ret := C.rist_destroy(ctxPtr(ctx))

	callbackMu.Lock()
	if key, ok := ctxStatsKeys[ctx]; ok {
		delete(statsTargets, key)
		delete(ctxStatsKeys, ctx)
	}
	callbackMu.Unlock()
	return int(ret)
}

// ReceiverDataRead implements native.Library.
func (Library) ReceiverDataRead(ctx native.Context, timeoutMs int) (native.DataBlock, int) {
	var blk *C.struct_rist_data_block
	ret := C.rist_receiver_data_read2(ctxPtr(ctx), &blk, C.int(timeoutMs))
	return native.DataBlock(unsafe.Pointer(blk)), int(ret)
}

// ReceiverDataBlock implements native.Library.
func (Library) ReceiverDataBlock(h native.DataBlock) (native.BlockView, bool) {
	blk := (*C.struct_rist_data_block)(unsafe.Pointer(h))
	if blk == nil {
		return native.BlockView{}, false
	}
	var payload []byte
	if blk.payload != nil && blk.payload_len > 0 {
		payload = unsafe.Slice((*byte)(blk.payload), int(blk.payload_len))
	}
	return native.BlockView{
		Payload:   payload,
		Timestamp: uint64(blk.ts_ntp),
		FlowID:    uint32(blk.flow_id),
	}, true
}

// ReceiverDataBlockFree implements native.Library.
func (Library) ReceiverDataBlockFree(h *native.DataBlock) {
	if h == nil || *h == 0 {
		return
	}
	blk := (*C.struct_rist_data_block)(unsafe.Pointer(*h))
	C.rist_receiver_data_block_free2(&blk)
	*h = 0
}

// ReceiverNotifyFDSet implements native.Library.
func (Library) ReceiverNotifyFDSet(ctx native.Context, fd int) int {
	return int(C.rist_receiver_data_notify_fd_set(ctxPtr(ctx), C.int(fd)))
}

// ReceiverSetOutputFIFOSize implements native.Library.
func (Library) ReceiverSetOutputFIFOSize(ctx native.Context, size uint32) int {
	return int(C.rist_receiver_set_output_fifo_size(ctxPtr(ctx), C.uint32_t(size)))
}

// SenderDataWrite implements native.Library. The payload is pinned while
// librist copies it.
func (Library) SenderDataWrite(ctx native.Context, out *native.OutBlock) int {
	if out == nil {
		return -1
	}
	var pinner runtime.Pinner
	defer pinner.Unpin()

	var blk C.struct_rist_data_block
	if len(out.Payload) > 0 {
		p := &out.Payload[0]
		pinner.Pin(p)
		blk.payload = unsafe.Pointer(p)
	}
	blk.payload_len = C.size_t(len(out.Payload))
	blk.flow_id = C.uint32_t(out.FlowID)
	return int(C.rist_sender_data_write(ctxPtr(ctx), &blk))
}

// StatsCallbackSet implements native.Library.
func (Library) StatsCallbackSet(ctx native.Context, intervalMs int, cb native.StatsCallback, arg uintptr) int {
	callbackMu.Lock()
	key := nextKey
	nextKey++
	if old, ok := ctxStatsKeys[ctx]; ok {
		delete(statsTargets, old)
	}
	statsTargets[key] = statsTarget{cb: cb, arg: arg}
	ctxStatsKeys[ctx] = key
	callbackMu.Unlock()

	return int(C.set_stats_callback(ctxPtr(ctx), C.int(intervalMs), C.uintptr_t(key)))
}

// StatsContainer implements native.Library. The union member is chosen by
// stats_type; the other member is left zero.
func (Library) StatsContainer(h native.Stats) (native.StatsContainer, bool) {
	s := (*C.struct_rist_stats)(unsafe.Pointer(h))
	if s == nil {
		return native.StatsContainer{}, false
	}

	var sc native.StatsContainer
	switch s.stats_type {
	case C.RIST_STATS_RECEIVER_FLOW:
		flow := (*C.struct_rist_stats_receiver_flow)(unsafe.Pointer(&s.stats))
		sc.Type = native.StatsReceiverFlow
		sc.ReceiverFlow = native.ReceiverFlowStats{
			PeerCount:      uint32(flow.peer_count),
			FlowID:         uint32(flow.flow_id),
			Bandwidth:      uint64(flow.bandwidth),
			RetryBandwidth: uint64(flow.retry_bandwidth),
			Sent:           uint64(flow.sent),
			Received:       uint64(flow.received),
			Missing:        uint32(flow.missing),
			Reordered:      uint32(flow.reordered),
			Recovered:      uint32(flow.recovered),
			Lost:           uint32(flow.lost),
			Quality:        float64(flow.quality),
			RTT:            uint32(flow.rtt),
		}
	case C.RIST_STATS_SENDER_PEER:
		peer := (*C.struct_rist_stats_sender_peer)(unsafe.Pointer(&s.stats))
		sc.Type = native.StatsSenderPeer
		sc.SenderPeer = native.SenderPeerStats{
			PeerID:         uint32(peer.peer_id),
			Bandwidth:      uint64(peer.bandwidth),
			RetryBandwidth: uint64(peer.retry_bandwidth),
			Sent:           uint64(peer.sent),
			Received:       uint64(peer.received),
			Retransmitted:  uint64(peer.retransmitted),
			Quality:        float64(peer.quality),
			RTT:            uint32(peer.rtt),
		}
	default:
		return native.StatsContainer{}, false
	}
	return sc, true
}

// StatsFree implements native.Library.
func (Library) StatsFree(h native.Stats) int {
	return int(C.rist_stats_free((*C.struct_rist_stats)(unsafe.Pointer(h))))
}

// LoggingSet implements native.Library. The resulting settings are passed
// to every context created afterwards.
func (Library) LoggingSet(level native.LogLevel, cb native.LogCallback, arg uintptr) int {
	callbackMu.Lock()
	defer callbackMu.Unlock()

	logTarget = logTargetT{cb: cb, arg: arg}
	return int(C.set_logging(&logSettings, C.enum_rist_log_level(level), 1))
}

//export goStatsCallback
func goStatsCallback(arg unsafe.Pointer, stats *C.struct_rist_stats) C.int {
	callbackMu.RLock()
	target, ok := statsTargets[uintptr(arg)]
	callbackMu.RUnlock()

	h := native.Stats(unsafe.Pointer(stats))
	if !ok || target.cb == nil {
		C.rist_stats_free(stats)
		return 0
	}
	return C.int(target.cb(target.arg, h))
}

//export goLogCallback
func goLogCallback(_ unsafe.Pointer, level C.enum_rist_log_level, msg *C.char) C.int {
	callbackMu.RLock()
	target := logTarget
	callbackMu.RUnlock()

	if target.cb == nil {
		return 0
	}
	return C.int(target.cb(target.arg, native.LogLevel(level), C.GoString(msg)))
}
