package wg

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"github.com/mca3/wglink/internal/run"
	"github.com/mca3/wglink/net/ifctl"
)

// TestIntegrationUpDown drives a real kernel. It needs root, the wireguard
// module and the wg and ip programs, so it only runs when asked to.
func TestIntegrationUpDown(t *testing.T) {
	if os.Getenv("WGLINK_INTEGRATION") == "" {
		t.Skip("set WGLINK_INTEGRATION=1 to run against the kernel")
	}
	if os.Geteuid() != 0 {
		t.Skip("needs root")
	}
	for _, tool := range []string{"wg", "ip"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s is not installed", tool)
		}
	}

	const name = "wglinktest0"
	ctx := context.Background()

	kp, err := GenerateKeypair(ctx, run.Exec{}, "wg")
	require.NoError(t, err)

	w := New(name, Options{})
	require.NoError(t, w.Up(ctx, kp.PrivateKey, "10.13.37.2/24"))
	t.Cleanup(func() {
		if _, err := netlink.LinkByName(name); err == nil {
			w.Down(ctx)
		}
	})

	st, err := ifctl.Inspect(name)
	require.NoError(t, err)
	assert.True(t, st.Up)
	assert.Contains(t, st.Addrs, netip.MustParsePrefix("10.13.37.2/24"))

	dev, err := Inspect(name)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, dev.PublicKey)
	assert.Equal(t, DefaultListenPort, dev.ListenPort)

	// The name is taken now.
	err = ifctl.New().CreateLink(ctx, name)
	assert.ErrorIs(t, err, ifctl.ErrLinkExists)

	require.NoError(t, w.Down(ctx))

	_, err = netlink.LinkByName(name)
	var nf netlink.LinkNotFoundError
	assert.True(t, errors.As(err, &nf), "link still present: %v", err)

	_, err = ifctl.Inspect(name)
	assert.ErrorIs(t, err, ifctl.ErrLinkNotFound)
}
