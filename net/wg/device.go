package wg

import (
	"fmt"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
)

// PeerStatus is the live state of one peer.
type PeerStatus struct {
	PublicKey     string
	Endpoint      string
	AllowedIPs    []string
	LastHandshake time.Time
	ReceiveBytes  int64
	TransmitBytes int64
}

// DeviceStatus is the live WireGuard state of an interface, as reported by
// the kernel module. Private keys are never included.
type DeviceStatus struct {
	Name       string
	Type       string
	PublicKey  string
	ListenPort int
	Peers      []PeerStatus
}

// Inspect reads the WireGuard configuration of the named device.
func Inspect(name string) (DeviceStatus, error) {
	c, err := wgctrl.New()
	if err != nil {
		return DeviceStatus{}, fmt.Errorf("failed to open wireguard client: %w", err)
	}
	defer c.Close()

	dev, err := c.Device(name)
	if err != nil {
		return DeviceStatus{}, fmt.Errorf("failed to inspect %s: %w", name, err)
	}

	st := DeviceStatus{
		Name:       dev.Name,
		Type:       dev.Type.String(),
		PublicKey:  dev.PublicKey.String(),
		ListenPort: dev.ListenPort,
	}

	for _, p := range dev.Peers {
		ps := PeerStatus{
			PublicKey:     p.PublicKey.String(),
			LastHandshake: p.LastHandshakeTime,
			ReceiveBytes:  p.ReceiveBytes,
			TransmitBytes: p.TransmitBytes,
		}
		if p.Endpoint != nil {
			ps.Endpoint = p.Endpoint.String()
		}
		for _, ipn := range p.AllowedIPs {
			ps.AllowedIPs = append(ps.AllowedIPs, ipn.String())
		}
		st.Peers = append(st.Peers, ps)
	}

	return st, nil
}
