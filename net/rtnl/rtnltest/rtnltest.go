// Package rtnltest provides in-memory rtnl transports for tests.
package rtnltest

import (
	"context"
	"sync"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"

	"github.com/mca3/wglink/net/rtnl"
)

// Func answers a request with zero or more datagrams. Each inner slice is
// delivered by one call to Receive.
type Func func(req netlink.Message) ([][]netlink.Message, error)

// Transport is a rtnl.Transport backed by a Func. It records every request
// it was sent.
type Transport struct {
	mu      sync.Mutex
	fn      Func
	pending [][]netlink.Message
	sent    []netlink.Message
	closed  bool
}

var _ rtnl.Transport = &Transport{}

// New returns a Transport that answers requests with fn.
func New(fn Func) *Transport {
	return &Transport{fn: fn}
}

// Dial returns a rtnl.Channel over a new Transport answering with fn.
func Dial(fn Func) (*rtnl.Channel, *Transport) {
	t := New(fn)
	return rtnl.NewChannel(t, 0), t
}

// Send implements rtnl.Transport.
func (t *Transport) Send(_ context.Context, m netlink.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, m)
	if t.fn == nil {
		return nil
	}

	dgrams, err := t.fn(m)
	if err != nil {
		return err
	}
	t.pending = append(t.pending, dgrams...)
	return nil
}

// Receive implements rtnl.Transport. With nothing queued it blocks until ctx
// is done, like a kernel that never answers.
func (t *Transport) Receive(ctx context.Context) ([]netlink.Message, error) {
	t.mu.Lock()
	if len(t.pending) > 0 {
		d := t.pending[0]
		t.pending = t.pending[1:]
		t.mu.Unlock()
		return d, nil
	}
	t.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

// Close implements rtnl.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Sent returns the requests sent so far.
func (t *Transport) Sent() []netlink.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]netlink.Message(nil), t.sent...)
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Ack builds the acknowledgement the kernel sends for req.
func Ack(req netlink.Message) netlink.Message {
	return Error(req, 0)
}

// Error builds an NLMSG_ERROR reply to req carrying -errno.
func Error(req netlink.Message, errno int) netlink.Message {
	data := nlenc.Int32Bytes(int32(-errno))

	// The kernel echoes the offending request header after the code.
	hdr := make([]byte, 16)
	nlenc.PutUint32(hdr[0:4], uint32(16+len(req.Data)))
	nlenc.PutUint16(hdr[4:6], uint16(req.Header.Type))
	nlenc.PutUint16(hdr[6:8], uint16(req.Header.Flags))
	nlenc.PutUint32(hdr[8:12], req.Header.Sequence)
	nlenc.PutUint32(hdr[12:16], req.Header.PID)

	return netlink.Message{
		Header: netlink.Header{
			Type:     netlink.Error,
			Sequence: req.Header.Sequence,
		},
		Data: append(data, hdr...),
	}
}

// Reply builds a reply to req of the given type. Replies that belong to a
// dump are flagged as multipart.
func Reply(req netlink.Message, typ netlink.HeaderType, data []byte) netlink.Message {
	m := netlink.Message{
		Header: netlink.Header{
			Type:     typ,
			Sequence: req.Header.Sequence,
		},
		Data: data,
	}
	if req.Header.Flags&netlink.Dump != 0 {
		m.Header.Flags |= netlink.Multi
	}
	return m
}

// Done builds the NLMSG_DONE terminating a dump.
func Done(req netlink.Message) netlink.Message {
	return netlink.Message{
		Header: netlink.Header{
			Type:     netlink.Done,
			Flags:    netlink.Multi,
			Sequence: req.Header.Sequence,
		},
		Data: nlenc.Int32Bytes(0),
	}
}
