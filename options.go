package rist

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/opd-ai/rist/native"
)

// RecoveryMode selects how lost packets are recovered.
type RecoveryMode int

const (
	// RecoveryTime is time-based retransmission, the librist default.
	RecoveryTime RecoveryMode = iota
	// RecoveryDisabled turns retransmission off.
	RecoveryDisabled
)

func (m RecoveryMode) String() string {
	if m == RecoveryDisabled {
		return "disabled"
	}
	return "time"
}

// MarshalText implements encoding.TextMarshaler.
func (m RecoveryMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RecoveryMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "time":
		*m = RecoveryTime
	case "disabled", "off":
		*m = RecoveryDisabled
	default:
		return fmt.Errorf("unknown recovery mode %q", text)
	}
	return nil
}

func (m RecoveryMode) native() native.RecoveryMode {
	if m == RecoveryDisabled {
		return native.RecoveryDisabled
	}
	return native.RecoveryTime
}

// PeerOptions tunes the recovery behavior of one peer. A nil field keeps
// the value librist parsed from the address.
type PeerOptions struct {
	RecoveryMode       *RecoveryMode  `yaml:"recovery_mode,omitempty"`
	RecoveryMaxBitrate *uint32        `yaml:"recovery_max_bitrate,omitempty"` // kbps
	RecoveryLengthMin  *time.Duration `yaml:"recovery_length_min,omitempty"`
	RecoveryLengthMax  *time.Duration `yaml:"recovery_length_max,omitempty"`
	ReorderBuffer      *uint32        `yaml:"reorder_buffer,omitempty"` // packets
	RTTMin             *time.Duration `yaml:"rtt_min,omitempty"`
	RTTMax             *time.Duration `yaml:"rtt_max,omitempty"`
}

// apply writes the explicitly set fields into s.
func (o *PeerOptions) apply(s *native.PeerSettings) {
	if o == nil {
		return
	}
	if o.RecoveryMode != nil {
		s.RecoveryMode = o.RecoveryMode.native()
	}
	if o.RecoveryMaxBitrate != nil {
		s.RecoveryMaxBitrate = *o.RecoveryMaxBitrate
	}
	if o.RecoveryLengthMin != nil {
		s.RecoveryLengthMin = millis32(*o.RecoveryLengthMin)
	}
	if o.RecoveryLengthMax != nil {
		s.RecoveryLengthMax = millis32(*o.RecoveryLengthMax)
	}
	if o.ReorderBuffer != nil {
		s.RecoveryReorderBuffer = *o.ReorderBuffer
	}
	if o.RTTMin != nil {
		s.RecoveryRTTMin = millis32(*o.RTTMin)
	}
	if o.RTTMax != nil {
		s.RecoveryRTTMax = millis32(*o.RTTMax)
	}
}

func (o *PeerOptions) empty() bool {
	return o == nil || *o == PeerOptions{}
}

// millis32 converts d to whole milliseconds clamped to the uint32 range.
func millis32(d time.Duration) uint32 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(ms)
}

// SenderOptions tunes peers added with Sender.AddPeerWithOptions.
type SenderOptions struct {
	PeerOptions `yaml:",inline"`
}

// NewSenderOptions returns options with nothing set.
func NewSenderOptions() *SenderOptions {
	return &SenderOptions{}
}

// WithRecoveryMode sets the recovery mode.
func (o *SenderOptions) WithRecoveryMode(m RecoveryMode) *SenderOptions {
	o.RecoveryMode = &m
	return o
}

// WithRecoveryMaxBitrate sets the recovery bitrate ceiling in kbps.
func (o *SenderOptions) WithRecoveryMaxBitrate(kbps uint32) *SenderOptions {
	o.RecoveryMaxBitrate = &kbps
	return o
}

// WithRecoveryLength sets the minimum and maximum recovery buffer.
func (o *SenderOptions) WithRecoveryLength(minLen, maxLen time.Duration) *SenderOptions {
	o.RecoveryLengthMin, o.RecoveryLengthMax = &minLen, &maxLen
	return o
}

// WithReorderBuffer sets the reorder buffer depth in packets.
func (o *SenderOptions) WithReorderBuffer(packets uint32) *SenderOptions {
	o.ReorderBuffer = &packets
	return o
}

// WithRTT sets the assumed round-trip time bounds.
func (o *SenderOptions) WithRTT(minRTT, maxRTT time.Duration) *SenderOptions {
	o.RTTMin, o.RTTMax = &minRTT, &maxRTT
	return o
}

// ReceiverOptions tunes peers added with Receiver.AddPeerWithOptions and
// the receiver's output queue.
type ReceiverOptions struct {
	PeerOptions `yaml:",inline"`

	// FIFOSize is the output queue depth in blocks. It must be a power
	// of two; zero removes the bound.
	FIFOSize *uint32 `yaml:"fifo_size,omitempty"`
}

// NewReceiverOptions returns options with nothing set.
func NewReceiverOptions() *ReceiverOptions {
	return &ReceiverOptions{}
}

// WithRecoveryMode sets the recovery mode.
func (o *ReceiverOptions) WithRecoveryMode(m RecoveryMode) *ReceiverOptions {
	o.RecoveryMode = &m
	return o
}

// WithRecoveryMaxBitrate sets the recovery bitrate ceiling in kbps.
func (o *ReceiverOptions) WithRecoveryMaxBitrate(kbps uint32) *ReceiverOptions {
	o.RecoveryMaxBitrate = &kbps
	return o
}

// WithRecoveryLength sets the minimum and maximum recovery buffer.
func (o *ReceiverOptions) WithRecoveryLength(minLen, maxLen time.Duration) *ReceiverOptions {
	o.RecoveryLengthMin, o.RecoveryLengthMax = &minLen, &maxLen
	return o
}

// WithReorderBuffer sets the reorder buffer depth in packets.
func (o *ReceiverOptions) WithReorderBuffer(packets uint32) *ReceiverOptions {
	o.ReorderBuffer = &packets
	return o
}

// WithRTT sets the assumed round-trip time bounds.
func (o *ReceiverOptions) WithRTT(minRTT, maxRTT time.Duration) *ReceiverOptions {
	o.RTTMin, o.RTTMax = &minRTT, &maxRTT
	return o
}

// WithFIFOSize sets the output queue depth.
func (o *ReceiverOptions) WithFIFOSize(blocks uint32) *ReceiverOptions {
	o.FIFOSize = &blocks
	return o
}

func (o *SenderOptions) peer() *PeerOptions {
	if o == nil {
		return nil
	}
	return &o.PeerOptions
}

func (o *ReceiverOptions) peer() *PeerOptions {
	if o == nil {
		return nil
	}
	return &o.PeerOptions
}

func (o *ReceiverOptions) fifo() *uint32 {
	if o == nil {
		return nil
	}
	return o.FIFOSize
}
