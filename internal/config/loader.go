package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/marecchia-io/node/pkg/segment"
)

// checkConfigFilePermissions rejects a config file with overly permissive
// permissions. Config files may reference the node's identity key file.
// Returns an error if any group or other permission bit is set.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// Load reads and validates a node configuration from a YAML file at path,
// resolving the rendezvous peer id/address and applying defaults.
func Load(path string) (*Config, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfigNotFound, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse YAML: %v", ErrConfigError, err)
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}

	rendezvous := cfg.Relay.RendezvousAddr
	if rendezvous == "" {
		rendezvous = defaultRendezvousAddr
	}
	addr, id, err := parseRendezvousAddr(rendezvous)
	if err != nil {
		return nil, fmt.Errorf("%w: relay.rendezvous_addr: %v", ErrConfigError, err)
	}
	cfg.rendezvousAddr = addr
	cfg.rendezvousPeerID = id

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseRendezvousAddr splits a rendezvous/relay multiaddr into the dialable
// prefix and the rendezvous node's peer id, requiring a trailing /p2p/<id>
// component (Open Question 1: the rendezvous peer id must be configured,
// never PeerId::random()).
func parseRendezvousAddr(s string) (ma.Multiaddr, peer.ID, error) {
	addr, err := ma.NewMultiaddr(s)
	if err != nil {
		return nil, "", fmt.Errorf("invalid multiaddr: %w", err)
	}
	idStr, err := addr.ValueForProtocol(ma.P_P2P)
	if err != nil {
		return nil, "", fmt.Errorf("missing /p2p/<id> component: %w", err)
	}
	id, err := peer.Decode(idStr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid peer id %q: %w", idStr, err)
	}
	return addr, id, nil
}

// Validate checks the configuration envelope against the façade's
// Construct failure mode (BadNamespace) plus the required identity/
// network fields.
func (c *Config) Validate() error {
	if _, err := segment.NewNamespace(c.Namespace); err != nil {
		return fmt.Errorf("%w: %v", ErrBadNamespace, err)
	}
	if c.Identity.KeyFile == "" {
		return fmt.Errorf("%w: identity.key_file is required", ErrConfigError)
	}
	if len(c.Network.ListenAddresses) == 0 {
		return fmt.Errorf("%w: network.listen_addresses must contain at least one address", ErrConfigError)
	}
	return nil
}

// ResolveConfigPaths resolves relative file paths in the config to be
// relative to the config file's directory.
func ResolveConfigPaths(cfg *Config, configDir string) {
	if cfg.Identity.KeyFile != "" && !filepath.IsAbs(cfg.Identity.KeyFile) {
		cfg.Identity.KeyFile = filepath.Join(configDir, cfg.Identity.KeyFile)
	}
}

// FindConfigFile searches for a node config file in standard locations.
// Search order: explicitPath (if given), ./marecchia-node.yaml,
// ~/.config/marecchia-node/config.yaml, /etc/marecchia-node/config.yaml.
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
		}
		return explicitPath, nil
	}

	searchPaths := []string{"marecchia-node.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "marecchia-node", "config.yaml"))
	}
	searchPaths = append(searchPaths, filepath.Join("/etc", "marecchia-node", "config.yaml"))

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w; searched:\n  %s", ErrConfigNotFound, strings.Join(searchPaths, "\n  "))
}

// DefaultConfigDir returns the default node config directory
// (~/.config/marecchia-node).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "marecchia-node"), nil
}
