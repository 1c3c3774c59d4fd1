//go:build !linux

package rtnl

import (
	"errors"
	"runtime"
)

// Dial is only implemented on Linux.
func Dial() (Transport, error) {
	return nil, errors.New("rtnetlink is not supported on " + runtime.GOOS)
}
