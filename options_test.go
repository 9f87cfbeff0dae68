package rist

import (
	"math"
	"testing"
	"time"

	"github.com/opd-ai/rist/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPeerOptionsApplyOnlySetFields(t *testing.T) {
	base := native.PeerSettings{
		Address:               "rist://@:5000",
		RecoveryMode:          native.RecoveryTime,
		RecoveryMaxBitrate:    100000,
		RecoveryLengthMin:     1000,
		RecoveryLengthMax:     1000,
		RecoveryReorderBuffer: 25,
		RecoveryRTTMin:        50,
		RecoveryRTTMax:        500,
	}

	got := base
	NewSenderOptions().WithRecoveryLength(200*time.Millisecond, 1500*time.Millisecond).peer().apply(&got)

	want := base
	want.RecoveryLengthMin, want.RecoveryLengthMax = 200, 1500
	assert.Equal(t, want, got)

	var nilOpts *PeerOptions
	got = base
	nilOpts.apply(&got)
	assert.Equal(t, base, got)
	assert.True(t, nilOpts.empty())
	assert.True(t, NewReceiverOptions().peer().empty())
	assert.False(t, NewReceiverOptions().WithReorderBuffer(1).peer().empty())
}

func TestMillisClamps(t *testing.T) {
	assert.Equal(t, uint32(0), millis32(-time.Second))
	assert.Equal(t, uint32(1), millis32(1999*time.Microsecond))
	assert.Equal(t, uint32(math.MaxUint32), millis32(time.Duration(math.MaxInt64)))
}

func TestReceiverOptionsFromYAML(t *testing.T) {
	doc := `
recovery_mode: disabled
recovery_max_bitrate: 8000
recovery_length_min: 500ms
recovery_length_max: 2s
reorder_buffer: 30
rtt_min: 10ms
rtt_max: 200ms
fifo_size: 256
`
	var opts ReceiverOptions
	require.NoError(t, yaml.Unmarshal([]byte(doc), &opts))

	require.NotNil(t, opts.RecoveryMode)
	assert.Equal(t, RecoveryDisabled, *opts.RecoveryMode)
	assert.Equal(t, uint32(8000), *opts.RecoveryMaxBitrate)
	assert.Equal(t, 500*time.Millisecond, *opts.RecoveryLengthMin)
	assert.Equal(t, 2*time.Second, *opts.RecoveryLengthMax)
	assert.Equal(t, uint32(30), *opts.ReorderBuffer)
	assert.Equal(t, 10*time.Millisecond, *opts.RTTMin)
	assert.Equal(t, 200*time.Millisecond, *opts.RTTMax)
	assert.Equal(t, uint32(256), *opts.FIFOSize)
}

func TestSenderOptionsYAMLLeavesUnsetNil(t *testing.T) {
	var opts SenderOptions
	require.NoError(t, yaml.Unmarshal([]byte("recovery_max_bitrate: 1000\n"), &opts))
	assert.NotNil(t, opts.RecoveryMaxBitrate)
	assert.Nil(t, opts.RecoveryMode)
	assert.Nil(t, opts.RTTMin)

	var bad SenderOptions
	assert.Error(t, yaml.Unmarshal([]byte("recovery_mode: sometimes\n"), &bad))
}

func TestProfileParsing(t *testing.T) {
	for _, p := range []Profile{ProfileSimple, ProfileMain, ProfileAdvanced} {
		got, err := ParseProfile(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParseProfile(" ADVANCED ")
	require.NoError(t, err)
	assert.Equal(t, ProfileAdvanced, got)

	_, err = ParseProfile("extreme")
	assert.Error(t, err)

	assert.Equal(t, native.ProfileMain, DefaultProfile.native())
	assert.Equal(t, "Profile(9)", Profile(9).String())
	assert.Equal(t, native.Profile(9), Profile(9).native())

	var p Profile
	require.NoError(t, p.UnmarshalText([]byte("simple")))
	assert.Equal(t, ProfileSimple, p)
}
