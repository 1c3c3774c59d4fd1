package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mca3/wglink/internal/config"
	"github.com/mca3/wglink/internal/run"
	"github.com/mca3/wglink/net/wg"
)

func genkeyCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a WireGuard keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := wg.GenerateKeypair(cmd.Context(), run.Exec{}, config.Cfg.WGTool)
			if err != nil {
				return fmt.Errorf("failed to generate keypair: %w", err)
			}

			if !save {
				fmt.Printf("private: %s\npublic: %s\n", kp.PrivateKey, kp.PublicKey)
				return nil
			}

			config.Cfg.PrivateKey = kp.PrivateKey
			config.Cfg.PublicKey = kp.PublicKey
			if err := config.SaveConfigFile(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("public: %s\n", kp.PublicKey)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Store the keypair in the config file instead of printing the private key")
	return cmd
}
