package native

// Context is the engine's top-level session handle for one sender or
// receiver role. The zero value is the null handle.
type Context uintptr

// PeerConfig is a parsed endpoint description produced by ParseAddress.
type PeerConfig uintptr

// Peer is an endpoint association registered with a Context.
type Peer uintptr

// DataBlock is one received unit of payload.
type DataBlock uintptr

// Stats is a stats container handed to a StatsCallback.
type Stats uintptr

// Profile selects the protocol complexity tier of a context.
type Profile int

// Profile values match enum rist_profile.
const (
	ProfileSimple   Profile = 0
	ProfileMain     Profile = 1
	ProfileAdvanced Profile = 2
)

// LogLevel matches enum rist_log_level.
type LogLevel int

const (
	LogDisable  LogLevel = -1
	LogError    LogLevel = 3
	LogWarn     LogLevel = 4
	LogNotice   LogLevel = 5
	LogInfo     LogLevel = 6
	LogDebug    LogLevel = 7
	LogSimulate LogLevel = 100
)

// RecoveryMode matches enum rist_recovery_mode.
type RecoveryMode int

const (
	RecoveryUnconfigured RecoveryMode = 0
	RecoveryDisabled     RecoveryMode = 1
	RecoveryTime         RecoveryMode = 2
)

// StatsType is the discriminant of a stats container.
type StatsType int

const (
	StatsSenderPeer   StatsType = 0
	StatsReceiverFlow StatsType = 1
)

// PeerSettings is the tunable part of a peer configuration. All durations
// are in milliseconds, the bitrate is in kbps as librist expects.
type PeerSettings struct {
	Address               string
	RecoveryMode          RecoveryMode
	RecoveryMaxBitrate    uint32
	RecoveryLengthMin     uint32
	RecoveryLengthMax     uint32
	RecoveryReorderBuffer uint32
	RecoveryRTTMin        uint32
	RecoveryRTTMax        uint32
}

// BlockView is the read-only metadata of a received block. Payload aliases
// engine memory and is valid until the block is freed.
type BlockView struct {
	Payload   []byte
	Timestamp uint64
	FlowID    uint32
}

// OutBlock describes a payload handed to SenderDataWrite. The engine copies
// what it needs before returning.
type OutBlock struct {
	Payload []byte
	FlowID  uint32
}

// ReceiverFlowStats mirrors struct rist_stats_receiver_flow.
type ReceiverFlowStats struct {
	PeerCount      uint32
	FlowID         uint32
	Bandwidth      uint64
	RetryBandwidth uint64
	Sent           uint64
	Received       uint64
	Missing        uint32
	Reordered      uint32
	Recovered      uint32
	Lost           uint32
	Quality        float64
	RTT            uint32
}

// SenderPeerStats mirrors struct rist_stats_sender_peer.
type SenderPeerStats struct {
	PeerID         uint32
	Bandwidth      uint64
	RetryBandwidth uint64
	Sent           uint64
	Received       uint64
	Retransmitted  uint64
	Quality        float64
	RTT            uint32
}

// StatsContainer mirrors struct rist_stats. Only the member selected by
// Type carries data.
type StatsContainer struct {
	Type         StatsType
	ReceiverFlow ReceiverFlowStats
	SenderPeer   SenderPeerStats
}

// StatsCallback receives a stats container the callee must free with
// StatsFree before returning.
type StatsCallback func(arg uintptr, stats Stats) int

// LogCallback receives one engine log line.
type LogCallback func(arg uintptr, level LogLevel, msg string) int

// Library is the librist C API.
type Library interface {
	// ReceiverCreate allocates a receiver context. Returns 0 on success.
	ReceiverCreate(profile Profile) (Context, int)

	// SenderCreate allocates a sender context with the given flow id.
	SenderCreate(profile Profile, flowID uint32) (Context, int)

	// ParseAddress parses a rist:// style URL into a new peer config.
	ParseAddress(url string) (PeerConfig, int)

	// PeerConfigLoad copies the tunable settings out of a peer config.
	PeerConfigLoad(cfg PeerConfig) (PeerSettings, int)

	// PeerConfigStore writes tunable settings back into a peer config.
	PeerConfigStore(cfg PeerConfig, settings PeerSettings) int

	// PeerConfigFree releases a peer config and zeroes the handle.
	PeerConfigFree(cfg *PeerConfig) int

	// PeerCreate registers a peer config with a context.
	PeerCreate(ctx Context, cfg PeerConfig) (Peer, int)

	// Start starts the context's worker threads.
	Start(ctx Context) int

	// Destroy stops the context and releases everything it owns.
	Destroy(ctx Context) int

	// ReceiverDataRead waits up to timeoutMs for a block. Returns the
	// number of blocks still queued plus one on success, 0 on timeout and
	// a negative value on error.
	ReceiverDataRead(ctx Context, timeoutMs int) (DataBlock, int)

	// ReceiverDataBlock exposes the contents of a block.
	ReceiverDataBlock(block DataBlock) (BlockView, bool)

	// ReceiverDataBlockFree releases a block and zeroes the handle.
	ReceiverDataBlockFree(block *DataBlock)

	// ReceiverNotifyFDSet asks the engine to write to fd whenever data
	// becomes available.
	ReceiverNotifyFDSet(ctx Context, fd int) int

	// ReceiverSetOutputFIFOSize sets the receive queue depth.
	ReceiverSetOutputFIFOSize(ctx Context, size uint32) int

	// SenderDataWrite queues one block for sending and returns the
	// number of bytes accepted or a negative error.
	SenderDataWrite(ctx Context, block *OutBlock) int

	// StatsCallbackSet registers a periodic stats callback.
	StatsCallbackSet(ctx Context, intervalMs int, cb StatsCallback, arg uintptr) int

	// StatsContainer exposes the contents of a stats container.
	StatsContainer(stats Stats) (StatsContainer, bool)

	// StatsFree releases a stats container.
	StatsFree(stats Stats) int

	// LoggingSet installs the process-wide log callback.
	LoggingSet(level LogLevel, cb LogCallback, arg uintptr) int
}
