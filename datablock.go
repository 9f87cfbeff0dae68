package rist

import (
	"sync"

	"github.com/opd-ai/rist/native"
)

// DataBlock is one received unit of payload. The caller owns it and must
// call Release once done; the payload view is only valid until then.
//
// A DataBlock may be handed to another goroutine, but its methods must not
// be called concurrently with Release.
type DataBlock struct {
	lib      native.Library
	h        native.DataBlock
	view     native.BlockView
	once     sync.Once
	released bool
}

// newDataBlock takes ownership of h. It returns nil and frees h if the
// engine cannot describe it.
func newDataBlock(lib native.Library, h native.DataBlock) *DataBlock {
	view, ok := lib.ReceiverDataBlock(h)
	if !ok {
		lib.ReceiverDataBlockFree(&h)
		return nil
	}
	return &DataBlock{lib: lib, h: h, view: view}
}

// Payload returns the received bytes without copying. The slice aliases
// engine memory and must not be used after Release.
func (b *DataBlock) Payload() []byte {
	if b == nil || b.released {
		return nil
	}
	return b.view.Payload
}

// Bytes returns a copy of the payload that outlives the block.
func (b *DataBlock) Bytes() []byte {
	p := b.Payload()
	if p == nil {
		return nil
	}
	return append([]byte(nil), p...)
}

// Len returns the payload length.
func (b *DataBlock) Len() int {
	return len(b.Payload())
}

// Timestamp returns the NTP timestamp of the block.
func (b *DataBlock) Timestamp() uint64 {
	if b == nil || b.released {
		return 0
	}
	return b.view.Timestamp
}

// FlowID returns the flow the block arrived on.
func (b *DataBlock) FlowID() uint32 {
	if b == nil || b.released {
		return 0
	}
	return b.view.FlowID
}

// Release hands the buffer back to the engine. Further calls are no-ops.
func (b *DataBlock) Release() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		b.released = true
		b.view = native.BlockView{}
		b.lib.ReceiverDataBlockFree(&b.h)
	})
}
