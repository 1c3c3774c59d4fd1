package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mca3/wglink/net/ifctl"
	"github.com/mca3/wglink/net/wg"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show link state and addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ifctl.Inspect(ifaceName())
			if err != nil {
				return err
			}

			up := "down"
			if st.Up {
				up = "up"
			}
			fmt.Printf("%s index %d mtu %d %s (oper %s)\n", st.Name, st.Index, st.MTU, up, st.OperState)
			for _, p := range st.Addrs {
				fmt.Printf("- %s\n", p)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show WireGuard device state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := wg.Inspect(ifaceName())
			if err != nil {
				return err
			}

			fmt.Printf("device %s (%s) port %d\npublic key %s\n", dev.Name, dev.Type, dev.ListenPort, dev.PublicKey)
			for _, p := range dev.Peers {
				fmt.Printf("\npeer %s\n", p.PublicKey)
				if p.Endpoint != "" {
					fmt.Printf("- endpoint %s\n", p.Endpoint)
				}
				for _, ip := range p.AllowedIPs {
					fmt.Printf("- allowed %s\n", ip)
				}
				if !p.LastHandshake.IsZero() {
					fmt.Printf("- handshake %s ago\n", time.Since(p.LastHandshake).Round(time.Second))
				}
				fmt.Printf("- rx %d tx %d\n", p.ReceiveBytes, p.TransmitBytes)
			}
			return nil
		},
	}
}
