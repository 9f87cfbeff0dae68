package rist

// Sender is a blocking send endpoint.
//
// Configuration methods (AddPeer, Start, Close) must not run concurrently
// with each other or with Send. Send and RawStats may be called from any
// goroutine once started.
type Sender struct {
	s *session
}

// NewSender creates a sender on the default library.
func NewSender(profile Profile) (*Sender, error) {
	return NewSenderWithConfig(profile, nil)
}

// NewSenderWithConfig creates a sender using cfg. A nil cfg selects the
// defaults.
func NewSenderWithConfig(profile Profile, cfg *Config) (*Sender, error) {
	s, err := newSession(roleSender, profile, cfg)
	if err != nil {
		return nil, err
	}
	return &Sender{s: s}, nil
}

// AddPeer registers an endpoint such as "rist://host:5000".
func (s *Sender) AddPeer(addr string) error {
	return s.s.addPeer(addr, nil, nil)
}

// AddPeerWithOptions registers an endpoint with tuning applied.
func (s *Sender) AddPeerWithOptions(addr string, opts *SenderOptions) error {
	return s.s.addPeer(addr, opts.peer(), nil)
}

// Start starts sending.
func (s *Sender) Start() error {
	return s.s.start()
}

// Send queues data on the context's flow and returns the number of bytes
// the engine accepted. Callers compare it with len(data) to detect partial
// acceptance.
func (s *Sender) Send(data []byte) (int, error) {
	return s.s.write(data, 0)
}

// SendWithFlowID is Send with an explicit flow id.
func (s *Sender) SendWithFlowID(data []byte, flowID uint32) (int, error) {
	return s.s.write(data, flowID)
}

// RawStats returns the most recent peer statistics, if any have arrived.
// With several peers it is whichever peer reported last.
func (s *Sender) RawStats() (SenderStats, bool) {
	return s.s.senderStats()
}

// Profile returns the profile the sender was created with.
func (s *Sender) Profile() Profile {
	return s.s.profile
}

// Close releases the native context. It is safe to call more than once.
func (s *Sender) Close() error {
	s.s.close()
	return nil
}
