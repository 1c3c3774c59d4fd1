// Package rtnl implements a minimal synchronous client for the kernel's
// routing netlink (rtnetlink) family.
//
// A Channel sends one request at a time and waits for the reply carrying the
// same sequence number. It is intended to be opened for a single logical
// operation and closed afterwards.
package rtnl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/mdlayher/netlink"

	"github.com/mca3/wglink/internal/logging"
)

// DefaultTimeout bounds how long Execute waits for a matching reply.
const DefaultTimeout = 5 * time.Second

// Transport moves netlink messages to and from the kernel.
//
// Receive returns every message contained in one datagram. It must return
// promptly with an error once ctx is done.
type Transport interface {
	Send(ctx context.Context, m netlink.Message) error
	Receive(ctx context.Context) ([]netlink.Message, error)
	Close() error
}

// Request is a single rtnetlink request.
type Request struct {
	Type  netlink.HeaderType
	Flags netlink.HeaderFlags
	Data  []byte
}

// Channel is a request/response channel to the kernel.
//
// A Channel is not safe for concurrent use.
type Channel struct {
	t       Transport
	seq     uint32
	timeout time.Duration
}

// NewChannel wraps t. The first request uses sequence number seq+1.
func NewChannel(t Transport, seq uint32) *Channel {
	return &Channel{t: t, seq: seq, timeout: DefaultTimeout}
}

// Open dials the kernel and returns a Channel with a random starting sequence
// number.
func Open() (*Channel, error) {
	t, err := Dial()
	if err != nil {
		return nil, err
	}
	return NewChannel(t, rand.Uint32()), nil
}

// SetTimeout changes the reply timeout. Non-positive values restore the
// default.
func (c *Channel) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.timeout = d
}

// Close releases the underlying transport.
func (c *Channel) Close() error {
	return c.t.Close()
}

// nextSeq returns the next sequence number, skipping zero.
func (c *Channel) nextSeq() uint32 {
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	return c.seq
}

// Execute sends req and waits for its completion.
//
// For acknowledged requests the returned slice holds any replies that arrived
// before the ACK. For dump requests it holds every reply up to NLMSG_DONE.
func (c *Channel) Execute(ctx context.Context, req Request) ([]netlink.Message, error) {
	m := netlink.Message{
		Header: netlink.Header{
			Type:     req.Type,
			Flags:    req.Flags | netlink.Request,
			Sequence: c.nextSeq(),
		},
		Data: req.Data,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.t.Send(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to send netlink request: %w", err)
	}

	ex := newExchange(m.Header)
	for ex.state == stateAwaiting {
		msgs, err := c.t.Receive(ctx)
		if err != nil {
			if isTimeout(err) {
				ex.timeout(err)
				break
			}
			return nil, fmt.Errorf("failed to receive netlink response: %w", err)
		}

		for _, msg := range msgs {
			if ex.feed(msg) {
				break
			}
		}
	}

	return ex.result()
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

type exchangeState int

const (
	stateAwaiting exchangeState = iota
	stateMatched
	stateFailed
	stateTimedOut
)

func (s exchangeState) String() string {
	switch s {
	case stateAwaiting:
		return "awaiting"
	case stateMatched:
		return "matched"
	case stateFailed:
		return "failed"
	case stateTimedOut:
		return "timed out"
	}
	return fmt.Sprintf("exchangeState(%d)", int(s))
}

// exchange correlates incoming messages with one outstanding request. It is
// created once the request has been sent.
type exchange struct {
	req     netlink.Header
	state   exchangeState
	replies []netlink.Message
	err     error
}

func newExchange(req netlink.Header) *exchange {
	return &exchange{req: req, state: stateAwaiting}
}

func (ex *exchange) dump() bool {
	return ex.req.Flags&netlink.Dump == netlink.Dump
}

func (ex *exchange) finish(err error) {
	if err != nil {
		ex.state = stateFailed
		ex.err = err
		return
	}
	ex.state = stateMatched
}

// feed processes one message and reports whether the exchange is complete.
func (ex *exchange) feed(m netlink.Message) bool {
	if ex.state != stateAwaiting {
		return true
	}

	if m.Header.Sequence != ex.req.Sequence {
		logging.WithFields(logging.Fields{
			"seq":  m.Header.Sequence,
			"want": ex.req.Sequence,
			"type": m.Header.Type,
		}).Debug("discarding netlink message for another request")
		return false
	}

	switch m.Header.Type {
	case netlink.Noop:
		return false
	case netlink.Overrun:
		ex.finish(malformed("receive buffer overrun"))
	case netlink.Error:
		code, ok := errorCode(m)
		if !ok {
			ex.finish(malformed("error message payload of %d bytes", len(m.Data)))
		} else if code != 0 {
			ex.finish(&KernelRejectedError{Code: code})
		} else {
			ex.finish(nil)
		}
	case netlink.Done:
		// NLMSG_DONE may carry an error code for dumps interrupted by
		// the kernel.
		if code, ok := errorCode(m); ok && code != 0 {
			ex.finish(&KernelRejectedError{Code: code})
		} else {
			ex.finish(nil)
		}
	default:
		ex.replies = append(ex.replies, m)
		if !ex.dump() && ex.req.Flags&netlink.Acknowledge == 0 {
			ex.finish(nil)
		}
	}

	return ex.state != stateAwaiting
}

func (ex *exchange) timeout(err error) {
	if ex.state != stateAwaiting {
		return
	}
	ex.state = stateTimedOut
	ex.err = &MalformedResponseError{
		Reason: fmt.Sprintf("no reply matching sequence %d", ex.req.Sequence),
		Err:    err,
	}
}

func (ex *exchange) result() ([]netlink.Message, error) {
	switch ex.state {
	case stateMatched:
		return ex.replies, nil
	case stateFailed, stateTimedOut:
		return nil, ex.err
	}
	return nil, fmt.Errorf("netlink exchange still %v", ex.state)
}
