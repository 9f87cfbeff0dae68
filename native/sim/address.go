package sim

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/opd-ai/rist/native"
)

// Defaults applied to freshly parsed peer configs, matching librist.
const (
	defaultRecoveryMaxBitrate = 100000
	defaultRecoveryLength     = 1000
	defaultReorderBuffer      = 25
	defaultRTTMin             = 50
	defaultRTTMax             = 500
)

// peerConfig is the engine-side object behind a native.PeerConfig.
type peerConfig struct {
	settings native.PeerSettings
	listen   bool
	host     string
	port     int
	secret   string
}

// ParseAddress implements native.Library.
func (e *Engine) ParseAddress(rawURL string) (native.PeerConfig, int) {
	if e.enter(OpParseAddress) {
		return 0, -1
	}

	cfg, ok := parseURL(rawURL)
	if !ok {
		e.logf(native.LogError, "could not parse peer address %q", rawURL)
		return 0, -1
	}
	return native.PeerConfig(e.register(cfg)), 0
}

func parseURL(rawURL string) (*peerConfig, bool) {
	if strings.IndexByte(rawURL, 0) >= 0 {
		return nil, false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "rist" {
		return nil, false
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return nil, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, false
	}

	cfg := &peerConfig{
		listen: u.User != nil,
		host:   host,
		port:   port,
		settings: native.PeerSettings{
			Address:               rawURL,
			RecoveryMode:          native.RecoveryTime,
			RecoveryMaxBitrate:    defaultRecoveryMaxBitrate,
			RecoveryLengthMin:     defaultRecoveryLength,
			RecoveryLengthMax:     defaultRecoveryLength,
			RecoveryReorderBuffer: defaultReorderBuffer,
			RecoveryRTTMin:        defaultRTTMin,
			RecoveryRTTMax:        defaultRTTMax,
		},
	}
	if !cfg.listen && host == "" {
		return nil, false
	}
	if !applyQuery(cfg, u.Query()) {
		return nil, false
	}
	return cfg, true
}

func applyQuery(cfg *peerConfig, q url.Values) bool {
	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		if key == "secret" {
			cfg.secret = value
			continue
		}

		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return false
		}
		v := uint32(n)
		s := &cfg.settings
		switch key {
		case "buffer":
			s.RecoveryLengthMin, s.RecoveryLengthMax = v, v
		case "buffer-min":
			s.RecoveryLengthMin = v
		case "buffer-max":
			s.RecoveryLengthMax = v
		case "rtt-min":
			s.RecoveryRTTMin = v
		case "rtt-max":
			s.RecoveryRTTMax = v
		case "reorder-buffer":
			s.RecoveryReorderBuffer = v
		case "bandwidth":
			s.RecoveryMaxBitrate = v
		}
	}
	return true
}

// PeerConfigLoad implements native.Library.
func (e *Engine) PeerConfigLoad(h native.PeerConfig) (native.PeerSettings, int) {
	if e.enter(OpPeerConfigLoad) {
		return native.PeerSettings{}, -1
	}
	cfg, ok := e.lookup(uintptr(h)).(*peerConfig)
	if !ok {
		return native.PeerSettings{}, -1
	}
	return cfg.settings, 0
}

// PeerConfigStore implements native.Library.
func (e *Engine) PeerConfigStore(h native.PeerConfig, settings native.PeerSettings) int {
	if e.enter(OpPeerConfigSet) {
		return -1
	}
	cfg, ok := e.lookup(uintptr(h)).(*peerConfig)
	if !ok {
		return -1
	}
	// The address is owned by the parser.
	settings.Address = cfg.settings.Address
	cfg.settings = settings
	return 0
}

// PeerConfigFree implements native.Library.
func (e *Engine) PeerConfigFree(h *native.PeerConfig) int {
	if h == nil || *h == 0 {
		return 0
	}
	_, ok := releaseAs[*peerConfig](e, uintptr(*h), "peer_config")
	*h = 0
	if !ok {
		return -1
	}
	return 0
}
