package rist

import "time"

// Receiver is a blocking receive endpoint.
//
// Configuration methods (AddPeer, Start, Close) must not run concurrently
// with each other or with Read. Read and RawStats may be called from any
// goroutine once started.
type Receiver struct {
	s *session
}

// NewReceiver creates a receiver on the default library.
func NewReceiver(profile Profile) (*Receiver, error) {
	return NewReceiverWithConfig(profile, nil)
}

// NewReceiverWithConfig creates a receiver using cfg. A nil cfg selects the
// defaults.
func NewReceiverWithConfig(profile Profile, cfg *Config) (*Receiver, error) {
	s, err := newSession(roleReceiver, profile, cfg)
	if err != nil {
		return nil, err
	}
	return &Receiver{s: s}, nil
}

// AddPeer registers an endpoint such as "rist://@:5000" to listen on or
// "rist://host:5000" to connect to.
func (r *Receiver) AddPeer(addr string) error {
	return r.s.addPeer(addr, nil, nil)
}

// AddPeerWithOptions registers an endpoint with tuning applied. Only the
// options that are set override librist's defaults.
func (r *Receiver) AddPeerWithOptions(addr string, opts *ReceiverOptions) error {
	return r.s.addPeer(addr, opts.peer(), opts.fifo())
}

// Start starts receiving.
func (r *Receiver) Start() error {
	return r.s.start()
}

// Read waits up to timeout for a block. It returns nil, nil when nothing
// arrived in time. The timeout is truncated to whole milliseconds.
func (r *Receiver) Read(timeout time.Duration) (*DataBlock, error) {
	if _, err := r.s.dataContext(); err != nil {
		return nil, err
	}
	ms, err := timeoutMillis(timeout)
	if err != nil {
		return nil, err
	}
	return r.s.read(ms)
}

// RawStats returns the most recent flow statistics, if any have arrived.
func (r *Receiver) RawStats() (ReceiverStats, bool) {
	return r.s.receiverStats()
}

// Profile returns the profile the receiver was created with.
func (r *Receiver) Profile() Profile {
	return r.s.profile
}

// Close releases the native context once a Read in progress returns. It
// is safe to call more than once.
func (r *Receiver) Close() error {
	r.s.close()
	return nil
}
