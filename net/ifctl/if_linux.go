package ifctl

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/mdlayher/netlink"
	vnl "github.com/vishvananda/netlink"
	"github.com/vishvananda/netlink/nl"
	"golang.org/x/sys/unix"

	"github.com/mca3/wglink/internal/logging"
	"github.com/mca3/wglink/net/rtnl"
)

// Controller implements Links using rtnetlink. Every operation opens and
// closes its own netlink channel.
type Controller struct {
	// MTU, if non-zero, is set on links when they are created.
	MTU int

	// Timeout bounds the wait for each kernel reply. Zero means
	// rtnl.DefaultTimeout.
	Timeout time.Duration

	// Dial opens a channel to the kernel. It defaults to rtnl.Open.
	Dial func() (*rtnl.Channel, error)
}

var _ Links = &Controller{}

// New returns a Controller talking to the running kernel.
func New() *Controller {
	return &Controller{Dial: rtnl.Open}
}

// do opens a channel, runs fn on it and closes it again.
func (c *Controller) do(op, name string, fn func(ch *rtnl.Channel) error) error {
	dial := c.Dial
	if dial == nil {
		dial = rtnl.Open
	}

	ch, err := dial()
	if err != nil {
		return &OpError{Op: op, Name: name, Err: err}
	}
	defer ch.Close()
	ch.SetTimeout(c.Timeout)

	if err := fn(ch); err != nil {
		return &OpError{Op: op, Name: name, Err: classify(err)}
	}
	return nil
}

// classify attaches the sentinel errors callers are expected to branch on.
func classify(err error) error {
	var kr *rtnl.KernelRejectedError
	if !errors.As(err, &kr) {
		return err
	}

	switch kr.Errno() {
	case unix.EEXIST:
		return fmt.Errorf("%w: %w", ErrLinkExists, err)
	case unix.ENODEV:
		return fmt.Errorf("%w: %w", ErrLinkNotFound, err)
	case unix.EPERM, unix.EACCES:
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return err
}

// CreateLink implements Links.
func (c *Controller) CreateLink(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return &OpError{Op: "create", Name: name, Err: err}
	}

	ae := netlink.NewAttributeEncoder()
	ae.String(unix.IFLA_IFNAME, name)
	if c.MTU > 0 {
		ae.Uint32(unix.IFLA_MTU, uint32(c.MTU))
	}
	ae.Nested(unix.IFLA_LINKINFO, func(nae *netlink.AttributeEncoder) error {
		nae.String(unix.IFLA_INFO_KIND, LinkKind)
		return nil
	})

	attrs, err := ae.Encode()
	if err != nil {
		return &OpError{Op: "create", Name: name, Err: err}
	}

	ifi := nl.NewIfInfomsg(unix.AF_UNSPEC)

	return c.do("create", name, func(ch *rtnl.Channel) error {
		_, err := ch.Execute(ctx, rtnl.Request{
			Type:  unix.RTM_NEWLINK,
			Flags: netlink.Create | netlink.Excl | netlink.Acknowledge,
			Data:  append(ifi.Serialize(), attrs...),
		})
		if err == nil {
			logging.WithFields(logging.Fields{"iface": name}).Debug("link created")
		}
		return err
	})
}

// AddAddress implements Links.
func (c *Controller) AddAddress(ctx context.Context, name string, ip netip.Addr, prefixLen int) error {
	if !ip.IsValid() || prefixLen < 0 || prefixLen > ip.BitLen() {
		return &OpError{Op: "add address", Name: name, Err: &InvalidAddressError{
			Input:  netip.PrefixFrom(ip, prefixLen).String(),
			Reason: "address or prefix length out of range",
		}}
	}
	ip = ip.Unmap()

	return c.do("add address", name, func(ch *rtnl.Channel) error {
		index, err := linkIndex(ctx, ch, name)
		if err != nil {
			return err
		}

		family := unix.AF_INET
		if ip.Is6() {
			family = unix.AF_INET6
		}

		ifa := nl.NewIfAddrmsg(family)
		ifa.Prefixlen = uint8(prefixLen)
		ifa.Scope = unix.RT_SCOPE_SITE
		ifa.Index = uint32(index)

		ae := netlink.NewAttributeEncoder()
		ae.Bytes(unix.IFA_LOCAL, ip.AsSlice())
		ae.Bytes(unix.IFA_ADDRESS, ip.AsSlice())

		attrs, err := ae.Encode()
		if err != nil {
			return err
		}

		_, err = ch.Execute(ctx, rtnl.Request{
			Type:  unix.RTM_NEWADDR,
			Flags: netlink.Create | netlink.Excl | netlink.Acknowledge,
			Data:  append(ifa.Serialize(), attrs...),
		})
		return err
	})
}

// SetUp implements Links.
func (c *Controller) SetUp(ctx context.Context, name string) error {
	return c.do("set up", name, func(ch *rtnl.Channel) error {
		index, err := linkIndex(ctx, ch, name)
		if err != nil {
			return err
		}

		ifi := nl.NewIfInfomsg(unix.AF_UNSPEC)
		ifi.Index = int32(index)
		ifi.Flags = unix.IFF_UP
		ifi.Change = unix.IFF_UP

		_, err = ch.Execute(ctx, rtnl.Request{
			Type:  unix.RTM_NEWLINK,
			Flags: netlink.Acknowledge,
			Data:  ifi.Serialize(),
		})
		return err
	})
}

// linkIndex resolves an interface name by enumerating all links.
//
// A link that was only just created may not be visible yet; that is reported
// as ErrLinkNotFound like any other missing link.
func linkIndex(ctx context.Context, ch *rtnl.Channel, name string) (int, error) {
	msgs, err := ch.Execute(ctx, rtnl.Request{
		Type:  unix.RTM_GETLINK,
		Flags: netlink.Dump,
		Data:  nl.NewIfInfomsg(unix.AF_UNSPEC).Serialize(),
	})
	if err != nil {
		return 0, err
	}

	for _, m := range msgs {
		if m.Header.Type != unix.RTM_NEWLINK || len(m.Data) < unix.SizeofIfInfomsg {
			continue
		}

		ad, err := netlink.NewAttributeDecoder(m.Data[unix.SizeofIfInfomsg:])
		if err != nil {
			return 0, &rtnl.MalformedResponseError{Reason: "bad link attributes", Err: err}
		}

		for ad.Next() {
			if ad.Type() == unix.IFLA_IFNAME && ad.String() == name {
				return int(nl.DeserializeIfInfomsg(m.Data).Index), nil
			}
		}
		if err := ad.Err(); err != nil {
			return 0, &rtnl.MalformedResponseError{Reason: "bad link attributes", Err: err}
		}
	}

	return 0, ErrLinkNotFound
}

// Inspect reports the current state of a link.
func Inspect(name string) (Status, error) {
	l, err := vnl.LinkByName(name)
	if err != nil {
		var nf vnl.LinkNotFoundError
		if errors.As(err, &nf) {
			err = ErrLinkNotFound
		}
		return Status{}, &OpError{Op: "inspect", Name: name, Err: err}
	}

	attrs := l.Attrs()
	st := Status{
		Name:      attrs.Name,
		Index:     attrs.Index,
		MTU:       attrs.MTU,
		Up:        attrs.RawFlags&unix.IFF_UP != 0,
		OperState: attrs.OperState.String(),
	}

	addrs, err := vnl.AddrList(l, vnl.FAMILY_ALL)
	if err != nil {
		return st, &OpError{Op: "inspect", Name: name, Err: err}
	}

	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		ip, ok := netip.AddrFromSlice(a.IP)
		if !ok {
			continue
		}
		ones, _ := a.Mask.Size()
		st.Addrs = append(st.Addrs, netip.PrefixFrom(ip.Unmap(), ones))
	}

	return st, nil
}
