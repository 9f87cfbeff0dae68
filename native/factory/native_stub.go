//go:build !librist || !cgo

package factory

import (
	"github.com/opd-ai/rist/native"
	"github.com/opd-ai/rist/native/sim"
)

const nativeAvailable = false

func newNative() native.Library {
	return sim.New()
}
