package wg

import (
	"context"
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/mca3/wglink/internal/run"
)

// Keypair is a WireGuard private key and the public key derived from it, both
// base64 encoded.
type Keypair struct {
	PrivateKey string
	PublicKey  string
}

// ParseKey converts a base64 key into a WireGuard key.
func ParseKey(key string) (wgtypes.Key, error) {
	k, err := wgtypes.ParseKey(key)
	if err != nil {
		return wgtypes.Key{}, fmt.Errorf("invalid key: %w", err)
	}
	return k, nil
}

// GenerateKeypair generates a keypair using "wg genkey" and "wg pubkey".
// tool is the path to wg; it defaults to "wg".
func GenerateKeypair(ctx context.Context, r run.Runner, tool string) (Keypair, error) {
	if tool == "" {
		tool = "wg"
	}

	priv, err := r.Run(ctx, nil, tool, "genkey")
	if err != nil {
		return Keypair{}, err
	}

	pub, err := PublicKey(ctx, r, tool, priv)
	if err != nil {
		return Keypair{}, err
	}

	if _, err := ParseKey(priv); err != nil {
		return Keypair{}, fmt.Errorf("%s genkey returned garbage: %w", tool, err)
	}

	return Keypair{PrivateKey: priv, PublicKey: pub}, nil
}

// PublicKey derives the public key of privateKey using "wg pubkey".
func PublicKey(ctx context.Context, r run.Runner, tool, privateKey string) (string, error) {
	if tool == "" {
		tool = "wg"
	}

	pub, err := r.Run(ctx, []byte(privateKey), tool, "pubkey")
	if err != nil {
		return "", err
	}

	if _, err := ParseKey(pub); err != nil {
		return "", fmt.Errorf("%s pubkey returned garbage: %w", tool, err)
	}
	return pub, nil
}
