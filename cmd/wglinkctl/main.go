package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mca3/wglink/internal/config"
	"github.com/mca3/wglink/internal/logging"
	"github.com/mca3/wglink/net/ifctl"
	"github.com/mca3/wglink/net/wg"
)

var iface string

func die(f string, d ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", d...)
	os.Exit(1)
}

// setupLogging applies the logging settings from the config file, unless
// --debug overrides the level.
func setupLogging(debug bool) error {
	level, err := logging.ParseLevel(config.Cfg.LogLevel)
	if err != nil {
		return err
	}
	if debug {
		level = logging.DebugLevel
	}
	logging.SetLevel(level)

	if config.Cfg.LogFile != "" {
		return logging.EnableFileLogging(config.Cfg.LogFile)
	}
	return nil
}

// ifaceName is the interface selected by --iface, or the configured one.
func ifaceName() string {
	if iface != "" {
		return iface
	}
	return config.Cfg.InterfaceName
}

func newInterface() *wg.Interface {
	ctl := ifctl.New()
	ctl.MTU = config.Cfg.MTU
	ctl.Timeout = config.Cfg.NetlinkTimeout

	return wg.New(ifaceName(), wg.Options{
		Links:      ctl,
		WGTool:     config.Cfg.WGTool,
		IPTool:     config.Cfg.IPTool,
		ListenPort: config.Cfg.ListenPort,
		Route:      config.Cfg.Route,
	})
}

func main() {
	var debug bool

	root := &cobra.Command{
		Use:           "wglinkctl",
		Short:         "Manage a kernel WireGuard interface",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadConfigFile(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			if iface != "" {
				if err := ifctl.ValidateName(iface); err != nil {
					return err
				}
			}
			return setupLogging(debug)
		},
	}
	root.PersistentFlags().StringVar(&config.ConfigFileOverride, "config", "", "Path to the config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&iface, "iface", "i", "", "Interface name (default from config)")

	root.AddCommand(genkeyCmd())
	root.AddCommand(upCmd())
	root.AddCommand(downCmd())
	root.AddCommand(addconfCmd())
	root.AddCommand(showconfCmd())
	root.AddCommand(addpeerCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(showCmd())

	if err := root.Execute(); err != nil {
		die("error: %v", err)
	}
}
