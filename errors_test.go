package rist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := newAddrError(KindPeerCreation, "rist://x:1", -1)

	assert.ErrorIs(t, err, ErrPeerCreation)
	assert.NotErrorIs(t, err, ErrAddressParse)
	assert.Equal(t, KindPeerCreation, KindOf(err))

	wrapped := fmt.Errorf("adding peer: %w", err)
	assert.ErrorIs(t, wrapped, ErrPeerCreation)
	assert.Equal(t, KindPeerCreation, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := newAddrError(KindAddressParse, "rist://bad", -1)
	assert.Equal(t, `rist: address parse failed for "rist://bad" (code -1)`, err.Error())

	assert.Equal(t, "rist: not started", newError(KindNotStarted, 0).Error())
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())
}

func TestTaskFailedUnwraps(t *testing.T) {
	err := taskFailed(context.Canceled)
	assert.ErrorIs(t, err, ErrTaskFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Zero(t, KindOf(errors.New("plain")))
	assert.Zero(t, KindOf(nil))
}
