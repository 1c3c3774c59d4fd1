// Package wg brings WireGuard interfaces up and down and manages their keys.
package wg

import (
	"context"
	"fmt"
	"strings"

	"github.com/mca3/wglink/internal/logging"
	"github.com/mca3/wglink/internal/run"
	"github.com/mca3/wglink/net/ifctl"
)

const (
	// DefaultListenPort is the UDP port interfaces listen on.
	DefaultListenPort = 1337

	// DefaultRoute is the network routed through the interface.
	DefaultRoute = "10.13.37.0/24"
)

// State is the lifecycle state of an Interface.
type State int

const (
	Absent State = iota
	Created
	Addressed
	Up
	ConfiguredUp
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Created:
		return "created"
	case Addressed:
		return "addressed"
	case Up:
		return "up"
	case ConfiguredUp:
		return "configured"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures an Interface. The zero value talks to the running
// kernel and uses the wg and ip programs from $PATH.
type Options struct {
	Links  ifctl.Links
	Runner run.Runner

	// WGTool and IPTool name the wg(8) and ip(8) programs.
	WGTool string
	IPTool string

	ListenPort int
	Route      string
}

// Interface is a single WireGuard interface identified by its name.
//
// An Interface is not thread-safe.
type Interface struct {
	Name string

	opts  Options
	state State
}

// New returns an Interface for name. Nothing is created until Up is called.
func New(name string, opts Options) *Interface {
	if opts.Links == nil {
		opts.Links = ifctl.New()
	}
	if opts.Runner == nil {
		opts.Runner = run.Exec{}
	}
	if opts.WGTool == "" {
		opts.WGTool = "wg"
	}
	if opts.IPTool == "" {
		opts.IPTool = "ip"
	}
	if opts.ListenPort == 0 {
		opts.ListenPort = DefaultListenPort
	}
	if opts.Route == "" {
		opts.Route = DefaultRoute
	}

	return &Interface{Name: name, opts: opts}
}

// State returns how far the last Up got, or Absent after Down.
func (w *Interface) State() State {
	return w.state
}

func (w *Interface) log() *logging.Entry {
	return logging.WithFields(logging.Fields{"iface": w.Name})
}

// Up creates the interface, assigns address (in CIDR notation), brings it up,
// installs the route and configures the private key and listen port.
//
// If any step fails Up returns immediately. Steps that already succeeded are
// not undone; State reports how far it got.
func (w *Interface) Up(ctx context.Context, privateKey, address string) error {
	ip, prefix, err := ifctl.ParseAddress(address)
	if err != nil {
		return err
	}

	if err := w.opts.Links.CreateLink(ctx, w.Name); err != nil {
		return fmt.Errorf("failed to create interface: %w", err)
	}
	w.state = Created

	if err := w.opts.Links.AddAddress(ctx, w.Name, ip, prefix); err != nil {
		return fmt.Errorf("failed to assign address: %w", err)
	}
	w.state = Addressed

	if err := w.opts.Links.SetUp(ctx, w.Name); err != nil {
		return fmt.Errorf("failed to set interface up: %w", err)
	}
	w.state = Up

	// The route may already exist, e.g. when another interface carries it.
	if _, err := w.opts.Runner.Run(ctx, nil, w.opts.IPTool, "route", "add", w.opts.Route, "dev", w.Name); err != nil {
		w.log().WithError(err).Warnf("failed to add route for %s", w.opts.Route)
	}

	if err := w.AddConfig(ctx, interfaceConfig(privateKey, w.opts.ListenPort)); err != nil {
		return fmt.Errorf("failed to configure interface: %w", err)
	}
	w.state = ConfiguredUp

	w.log().Infof("interface is up with address %s, listening on port %d", address, w.opts.ListenPort)
	return nil
}

// Down deletes the interface.
func (w *Interface) Down(ctx context.Context) error {
	if _, err := w.opts.Runner.Run(ctx, nil, w.opts.IPTool, "link", "del", "dev", w.Name); err != nil {
		return fmt.Errorf("failed to delete interface %s: %w", w.Name, err)
	}
	w.state = Absent

	w.log().Info("interface deleted")
	return nil
}

// AddConfig appends configuration in wg-quick(8) syntax to the interface,
// e.g. to add peers.
func (w *Interface) AddConfig(ctx context.Context, config string) error {
	_, err := w.opts.Runner.Run(ctx, []byte(config), w.opts.WGTool, "addconf", w.Name, "/dev/stdin")
	return err
}

// PeersConfig returns the interface configuration with everything but the
// peer sections stripped, so it can be fed back to AddConfig.
func (w *Interface) PeersConfig(ctx context.Context) (string, error) {
	out, err := w.opts.Runner.Run(ctx, nil, w.opts.WGTool, "showconf", w.Name)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		l := strings.TrimSpace(line)
		if l == "" ||
			strings.HasPrefix(l, "[Interface]") ||
			strings.HasPrefix(l, "ListenPort") ||
			strings.HasPrefix(l, "FwMark") ||
			strings.HasPrefix(l, "PrivateKey") {
			continue
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}

// AddPeer adds a peer with the given public key and comma separated list of
// allowed IPs.
func (w *Interface) AddPeer(ctx context.Context, publicKey, allowedIPs string) error {
	if _, err := ParseKey(publicKey); err != nil {
		return err
	}

	_, err := w.opts.Runner.Run(ctx, nil, w.opts.WGTool, "set", w.Name, "peer", publicKey, "allowed-ips", allowedIPs)
	return err
}

func interfaceConfig(privateKey string, port int) string {
	return fmt.Sprintf("[Interface]\nPrivateKey = %s\nListenPort = %d", privateKey, port)
}
