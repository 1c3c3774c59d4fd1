package rtnl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mdlayher/netlink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/mca3/wglink/net/rtnl"
	"github.com/mca3/wglink/net/rtnl/rtnltest"
)

func TestExecuteAck(t *testing.T) {
	c, tr := rtnltest.Dial(func(req netlink.Message) ([][]netlink.Message, error) {
		return [][]netlink.Message{{rtnltest.Ack(req)}}, nil
	})
	defer c.Close()

	_, err := c.Execute(context.Background(), rtnl.Request{
		Type:  unix.RTM_NEWLINK,
		Flags: netlink.Acknowledge,
		Data:  []byte{0, 0, 0, 0},
	})
	require.NoError(t, err)

	sent := tr.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, netlink.Request|netlink.Acknowledge, sent[0].Header.Flags)
	assert.NotZero(t, sent[0].Header.Sequence)
}

func TestExecuteSequenceIncreases(t *testing.T) {
	c, tr := rtnltest.Dial(func(req netlink.Message) ([][]netlink.Message, error) {
		return [][]netlink.Message{{rtnltest.Ack(req)}}, nil
	})

	for i := 0; i < 3; i++ {
		_, err := c.Execute(context.Background(), rtnl.Request{Type: unix.RTM_NEWLINK, Flags: netlink.Acknowledge})
		require.NoError(t, err)
	}

	sent := tr.Sent()
	require.Len(t, sent, 3)
	assert.Less(t, sent[0].Header.Sequence, sent[1].Header.Sequence)
	assert.Less(t, sent[1].Header.Sequence, sent[2].Header.Sequence)
}

func TestExecuteIgnoresForeignSequence(t *testing.T) {
	c, _ := rtnltest.Dial(func(req netlink.Message) ([][]netlink.Message, error) {
		stale := req
		stale.Header.Sequence = req.Header.Sequence + 100

		// A stale error in its own datagram, then one datagram with
		// another stray reply followed by ours.
		return [][]netlink.Message{
			{rtnltest.Error(stale, int(unix.EPERM))},
			{rtnltest.Ack(stale), rtnltest.Ack(req)},
		}, nil
	})

	_, err := c.Execute(context.Background(), rtnl.Request{Type: unix.RTM_NEWLINK, Flags: netlink.Acknowledge})
	assert.NoError(t, err)
}

func TestExecuteTimeout(t *testing.T) {
	c, _ := rtnltest.Dial(func(req netlink.Message) ([][]netlink.Message, error) {
		stale := req
		stale.Header.Sequence++
		return [][]netlink.Message{{rtnltest.Ack(stale)}}, nil
	})
	c.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := c.Execute(context.Background(), rtnl.Request{Type: unix.RTM_NEWLINK, Flags: netlink.Acknowledge})

	var mr *rtnl.MalformedResponseError
	require.True(t, errors.As(err, &mr), "got %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteCancelled(t *testing.T) {
	c, _ := rtnltest.Dial(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, rtnl.Request{Type: unix.RTM_NEWLINK, Flags: netlink.Acknowledge})
	require.Error(t, err)

	var mr *rtnl.MalformedResponseError
	assert.False(t, errors.As(err, &mr), "cancellation is not a malformed response")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteKernelRejected(t *testing.T) {
	c, _ := rtnltest.Dial(func(req netlink.Message) ([][]netlink.Message, error) {
		return [][]netlink.Message{{rtnltest.Error(req, int(unix.EEXIST))}}, nil
	})

	_, err := c.Execute(context.Background(), rtnl.Request{Type: unix.RTM_NEWLINK, Flags: netlink.Acknowledge})

	var kr *rtnl.KernelRejectedError
	require.True(t, errors.As(err, &kr))
	assert.Equal(t, unix.EEXIST, kr.Errno())
}

func TestExecuteDump(t *testing.T) {
	c, _ := rtnltest.Dial(func(req netlink.Message) ([][]netlink.Message, error) {
		return [][]netlink.Message{
			{rtnltest.Reply(req, unix.RTM_NEWLINK, []byte{1}), rtnltest.Reply(req, unix.RTM_NEWLINK, []byte{2})},
			{rtnltest.Reply(req, unix.RTM_NEWLINK, []byte{3}), rtnltest.Done(req)},
		}, nil
	})

	msgs, err := c.Execute(context.Background(), rtnl.Request{Type: unix.RTM_GETLINK, Flags: netlink.Dump})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []byte{3}, msgs[2].Data)
}

func TestExecuteSendError(t *testing.T) {
	boom := errors.New("boom")
	c, _ := rtnltest.Dial(func(netlink.Message) ([][]netlink.Message, error) {
		return nil, boom
	})

	_, err := c.Execute(context.Background(), rtnl.Request{Type: unix.RTM_NEWLINK})
	assert.ErrorIs(t, err, boom)
}
