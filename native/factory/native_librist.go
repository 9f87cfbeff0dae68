//go:build librist && cgo

package factory

import (
	"github.com/opd-ai/rist/native"
	"github.com/opd-ai/rist/native/librist"
)

const nativeAvailable = true

func newNative() native.Library {
	return librist.New()
}
