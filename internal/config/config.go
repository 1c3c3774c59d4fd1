package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mca3/wglink/net/ifctl"
)

var ConfigFileOverride = ""

// Config is the on-disk configuration of wglink.
type Config struct {
	InterfaceName string `yaml:"interface"`
	Address       string `yaml:"address"`
	PrivateKey    string `yaml:"private_key,omitempty"`
	PublicKey     string `yaml:"public_key,omitempty"`
	ListenPort    int    `yaml:"listen_port"`
	Route         string `yaml:"route"`

	// MTU is set when the link is created. Zero keeps the kernel default.
	MTU int `yaml:"mtu,omitempty"`

	WGTool string `yaml:"wg_tool"`
	IPTool string `yaml:"ip_tool"`

	NetlinkTimeout time.Duration `yaml:"netlink_timeout"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		InterfaceName: "wg0",
		Address:       "10.13.37.1/24",
		ListenPort:    1337,
		Route:         "10.13.37.0/24",

		WGTool: "wg",
		IPTool: "ip",

		NetlinkTimeout: 5 * time.Second,

		LogLevel: "info",
	}
}

var Cfg = Default()

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if err := ifctl.ValidateName(c.InterfaceName); err != nil {
		return err
	}
	if _, _, err := ifctl.ParseAddress(c.Address); err != nil {
		return err
	}
	if _, _, err := ifctl.ParseAddress(c.Route); err != nil {
		return fmt.Errorf("route: %w", err)
	}
	if c.ListenPort <= 0 || c.ListenPort > 0xFFFF {
		return fmt.Errorf("listen port %d out of range", c.ListenPort)
	}
	if c.MTU != 0 && (c.MTU < 576 || c.MTU > 0xFFFF) {
		return fmt.Errorf("mtu %d out of range", c.MTU)
	}
	if c.NetlinkTimeout < 0 {
		return fmt.Errorf("negative netlink timeout")
	}
	return nil
}

func resolveConfigFile() string {
	if ConfigFileOverride != "" {
		return ConfigFileOverride
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		dir, err = os.Getwd()
		if err != nil {
			panic(err)
		}
	}

	return filepath.Join(dir, "wglink", "config.yaml")
}

// Path returns the configuration file in use.
func Path() string {
	return resolveConfigFile()
}

func SaveConfigFile() error {
	path := resolveConfigFile()

	base := filepath.Dir(path)
	if err := os.MkdirAll(base, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file holds the private key.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&Cfg); err != nil {
		return err
	}
	return enc.Close()
}

func ReadConfigFile() error {
	path := resolveConfigFile()

	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		err := SaveConfigFile()
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&Cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return Cfg.Validate()
}
