//go:build !linux

package ifctl

import (
	"context"
	"errors"
	"net/netip"
	"runtime"
	"time"
)

var errUnsupported = errors.New("interface control is not supported on " + runtime.GOOS)

// Controller is only functional on Linux.
type Controller struct {
	MTU     int
	Timeout time.Duration
}

var _ Links = &Controller{}

// New returns a Controller whose operations all fail.
func New() *Controller {
	return &Controller{}
}

func (c *Controller) CreateLink(_ context.Context, name string) error {
	return &OpError{Op: "create", Name: name, Err: errUnsupported}
}

func (c *Controller) AddAddress(_ context.Context, name string, _ netip.Addr, _ int) error {
	return &OpError{Op: "add address", Name: name, Err: errUnsupported}
}

func (c *Controller) SetUp(_ context.Context, name string) error {
	return &OpError{Op: "set up", Name: name, Err: errUnsupported}
}

// Inspect reports the current state of a link.
func Inspect(name string) (Status, error) {
	return Status{}, &OpError{Op: "inspect", Name: name, Err: errUnsupported}
}
