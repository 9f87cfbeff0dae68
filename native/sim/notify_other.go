//go:build !unix

package sim

const notifySupported = false

func notifyWrite(int) {}
