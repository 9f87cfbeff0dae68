package rist

import (
	"fmt"
	"strings"

	"github.com/opd-ai/rist/native"
)

// Profile is the protocol complexity tier of a session. It is fixed at
// construction.
type Profile int

const (
	// ProfileSimple is the minimal feature set.
	ProfileSimple Profile = iota
	// ProfileMain is the standard feature set and the default.
	ProfileMain
	// ProfileAdvanced is the full feature set.
	ProfileAdvanced
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = ProfileMain

func (p Profile) String() string {
	switch p {
	case ProfileSimple:
		return "simple"
	case ProfileMain:
		return "main"
	case ProfileAdvanced:
		return "advanced"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// ParseProfile accepts the names returned by String, case-insensitively.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return ProfileSimple, nil
	case "main", "":
		return ProfileMain, nil
	case "advanced":
		return ProfileAdvanced, nil
	}
	return 0, fmt.Errorf("unknown profile %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Profile) UnmarshalText(text []byte) error {
	v, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// native passes unknown values through so the engine rejects them at
// context creation.
func (p Profile) native() native.Profile {
	switch p {
	case ProfileSimple:
		return native.ProfileSimple
	case ProfileMain:
		return native.ProfileMain
	case ProfileAdvanced:
		return native.ProfileAdvanced
	}
	return native.Profile(p)
}
