package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mca3/wglink/internal/config"
)

func upCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create, address and configure the interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Cfg.PrivateKey == "" {
				return errors.New("no private key configured; run genkey --save first")
			}
			if address == "" {
				address = config.Cfg.Address
			}

			w := newInterface()
			if err := w.Up(cmd.Context(), config.Cfg.PrivateKey, address); err != nil {
				return fmt.Errorf("%s: %w (state %s)", w.Name, err, w.State())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&address, "address", "a", "", "Address in CIDR notation (default from config)")
	return cmd
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Delete the interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newInterface().Down(cmd.Context())
		},
	}
}

func addconfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addconf [file]",
		Short: "Append wg(8) configuration read from file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			conf, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			return newInterface().AddConfig(cmd.Context(), string(conf))
		},
	}
}

func showconfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "showconf",
		Short: "Print the peer configuration of the interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := newInterface().PeersConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(conf)
			return nil
		},
	}
}

func addpeerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addpeer <public key> <allowed ips>",
		Short: "Add or update a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newInterface().AddPeer(cmd.Context(), args[0], args[1])
		},
	}
}
