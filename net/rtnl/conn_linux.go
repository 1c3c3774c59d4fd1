//go:build linux

package rtnl

import (
	"context"
	"fmt"
	"os"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"
)

// conn is a Transport over an AF_NETLINK socket.
type conn struct {
	s   *socket.Conn
	buf []byte
}

var _ Transport = &conn{}

// Dial opens a NETLINK_ROUTE socket bound to a kernel-assigned port.
func Dial() (Transport, error) {
	s, err := socket.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE, "rtnetlink", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open netlink socket: %w", err)
	}

	if err := s.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to bind netlink socket: %w", err)
	}

	return &conn{
		s:   s,
		buf: make([]byte, os.Getpagesize()),
	}, nil
}

// Send implements Transport.
func (c *conn) Send(ctx context.Context, m netlink.Message) error {
	b, err := marshalMessage(m)
	if err != nil {
		return err
	}

	return c.s.Sendto(ctx, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
}

// Receive implements Transport.
func (c *conn) Receive(ctx context.Context) ([]netlink.Message, error) {
	// Peek first so dump replies larger than the buffer are not truncated.
	n, _, err := c.s.Recvfrom(ctx, c.buf, unix.MSG_PEEK|unix.MSG_TRUNC)
	if err != nil {
		return nil, err
	}
	if n > len(c.buf) {
		c.buf = make([]byte, align(n))
	}

	n, _, err = c.s.Recvfrom(ctx, c.buf, 0)
	if err != nil {
		return nil, err
	}

	return parseMessages(c.buf[:n])
}

// Close implements Transport.
func (c *conn) Close() error {
	return c.s.Close()
}
