package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mca3/wglink/internal/config"
	"github.com/mca3/wglink/internal/logging"
	"github.com/mca3/wglink/internal/run"
	"github.com/mca3/wglink/net/ifctl"
	"github.com/mca3/wglink/net/wg"
)

var wgIface *wg.Interface

// ensureKeypair generates and saves a keypair if the config has none.
func ensureKeypair(ctx context.Context) error {
	if config.Cfg.PrivateKey != "" {
		pub, err := wg.PublicKey(ctx, run.Exec{}, config.Cfg.WGTool, config.Cfg.PrivateKey)
		if err != nil {
			return fmt.Errorf("configured private key is unusable: %w", err)
		}
		config.Cfg.PublicKey = pub
		return nil
	}

	logging.Infof("No private key configured; generating one")

	kp, err := wg.GenerateKeypair(ctx, run.Exec{}, config.Cfg.WGTool)
	if err != nil {
		return err
	}

	config.Cfg.PrivateKey = kp.PrivateKey
	config.Cfg.PublicKey = kp.PublicKey
	return config.SaveConfigFile()
}

func startup(ctx context.Context, debug bool) error {
	if err := config.ReadConfigFile(); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	level, err := logging.ParseLevel(config.Cfg.LogLevel)
	if err != nil {
		return err
	}
	if debug {
		level = logging.DebugLevel
	}
	logging.SetLevel(level)
	if config.Cfg.LogFile != "" {
		if err := logging.EnableFileLogging(config.Cfg.LogFile); err != nil {
			return err
		}
	}

	if err := ensureKeypair(ctx); err != nil {
		return fmt.Errorf("failed to set up keypair: %w", err)
	}

	ctl := ifctl.New()
	ctl.MTU = config.Cfg.MTU
	ctl.Timeout = config.Cfg.NetlinkTimeout

	wgIface = wg.New(config.Cfg.InterfaceName, wg.Options{
		Links:      ctl,
		WGTool:     config.Cfg.WGTool,
		IPTool:     config.Cfg.IPTool,
		ListenPort: config.Cfg.ListenPort,
		Route:      config.Cfg.Route,
	})

	if err := wgIface.Up(ctx, config.Cfg.PrivateKey, config.Cfg.Address); err != nil {
		return fmt.Errorf("failed to bring up %s: %w", wgIface.Name, err)
	}

	logging.Infof("%s is up with public key %s", wgIface.Name, config.Cfg.PublicKey)
	return nil
}

// serve brings the interface up and holds it until SIGINT or SIGTERM.
func serve(debug bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if os.Getuid() != 0 {
		logging.Warnf("Not running as root; creating the interface will likely fail")
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)

	if err := startup(ctx, debug); err != nil {
		logging.Errorf("Failed to start: %v", err)
		goto done
	}

	// Wait until we are told to stop
	<-sigchan

done:
	logging.Infof("Exiting.")

	// Tear down whatever Up managed to create.
	if wgIface != nil && wgIface.State() != wg.Absent {
		downCtx, downCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := wgIface.Down(downCtx); err != nil {
			logging.Errorf("Failed to delete %s: %v", wgIface.Name, err)
		}
		downCancel()
	}
}

func main() {
	var debug bool

	root := &cobra.Command{
		Use:          "wglinkd",
		Short:        "Bring up the configured WireGuard interface and hold it until stopped",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			serve(debug)
		},
	}
	root.Flags().StringVar(&config.ConfigFileOverride, "config", "", "Path to the config file")
	root.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
