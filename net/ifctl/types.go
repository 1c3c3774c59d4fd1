// Package ifctl creates and configures WireGuard network interfaces through
// the kernel's routing netlink interface.
package ifctl

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// LinkKind is the rtnetlink link kind of WireGuard interfaces.
const LinkKind = "wireguard"

// MaxNameLen is the longest interface name the kernel accepts (IFNAMSIZ - 1).
const MaxNameLen = 15

var (
	ErrLinkExists       = errors.New("link already exists")
	ErrLinkNotFound     = errors.New("link not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidName      = errors.New("invalid interface name")
)

// Links is implemented by types which can drive the kernel side of a
// WireGuard interface.
//
// Every method is its own kernel transaction; a failure part way through
// bringing an interface up leaves the earlier steps in place.
type Links interface {
	// CreateLink creates a new WireGuard link. It fails with
	// ErrLinkExists if the name is taken.
	CreateLink(ctx context.Context, name string) error

	// AddAddress assigns ip/prefixLen to an existing link. It fails with
	// ErrLinkNotFound if the link does not exist (yet).
	AddAddress(ctx context.Context, name string, ip netip.Addr, prefixLen int) error

	// SetUp sets the link administratively up.
	SetUp(ctx context.Context, name string) error
}

// Status describes a link as currently seen by the kernel.
type Status struct {
	Name      string
	Index     int
	MTU       int
	Up        bool
	OperState string
	Addrs     []netip.Prefix
}

// OpError records the operation and interface an error happened on.
type OpError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// InvalidAddressError is returned by ParseAddress.
type InvalidAddressError struct {
	Input  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Input, e.Reason)
}

func (e *InvalidAddressError) Is(target error) bool {
	return target == ErrInvalidAddress
}

// ParseAddress splits an address in CIDR notation ("10.13.37.1/24") into the
// host address and prefix length. The host bits are kept.
func ParseAddress(s string) (netip.Addr, int, error) {
	bad := func(reason string) (netip.Addr, int, error) {
		return netip.Addr{}, 0, &InvalidAddressError{Input: s, Reason: reason}
	}

	host, bits, ok := strings.Cut(s, "/")
	if !ok {
		return bad("missing prefix length")
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return bad("bad IP address")
	}
	if ip.Zone() != "" {
		return bad("zones are not allowed")
	}
	ip = ip.Unmap()

	prefix, err := strconv.Atoi(bits)
	if err != nil || bits != strconv.Itoa(prefix) {
		return bad("bad prefix length")
	}
	if prefix < 0 || prefix > ip.BitLen() {
		return bad(fmt.Sprintf("prefix length %d out of range for %d bit address", prefix, ip.BitLen()))
	}

	return ip, prefix, nil
}

// ValidateName checks that name could be used as an interface name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/: \t\n"):
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidName, name)
	}
	return nil
}
