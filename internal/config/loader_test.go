package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
namespace: "marecchia-test-net"
identity:
  key_file: "identity.key"
network:
  listen_addresses:
    - "/ip4/0.0.0.0/tcp/0/ws"
relay:
  rendezvous_addr: "/ip4/203.0.113.50/tcp/7777/wss/p2p/12D3KooWRzaGMTqQbRHNMZkAYj8ALUXoK99qSjhiFLanDoVWK9An"
`

func writeTestConfig(t testing.TB, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, testConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Namespace != "marecchia-test-net" {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, "marecchia-test-net")
	}
	if cfg.Identity.KeyFile != "identity.key" {
		t.Errorf("KeyFile = %q, want %q", cfg.Identity.KeyFile, "identity.key")
	}
	if len(cfg.Network.ListenAddresses) != 1 {
		t.Errorf("ListenAddresses count = %d, want 1", len(cfg.Network.ListenAddresses))
	}
	if cfg.RendezvousPeerID().String() != "12D3KooWRzaGMTqQbRHNMZkAYj8ALUXoK99qSjhiFLanDoVWK9An" {
		t.Errorf("RendezvousPeerID = %s, want the configured peer id", cfg.RendezvousPeerID())
	}
}

func TestLoad_DefaultsRendezvousAddrWhenUnset(t *testing.T) {
	dir := t.TempDir()
	yaml := `
namespace: "marecchia-test-net"
identity:
  key_file: "identity.key"
network:
  listen_addresses: ["/ip4/0.0.0.0/tcp/0/ws"]
`
	path := writeTestConfig(t, dir, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RendezvousAddr() == nil {
		t.Fatal("expected default rendezvous address to be resolved")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "not: [valid: yaml: {{{")

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_RendezvousAddrMissingPeerID(t *testing.T) {
	dir := t.TempDir()
	yaml := `
namespace: "marecchia-test-net"
identity:
  key_file: "identity.key"
network:
  listen_addresses: ["/ip4/0.0.0.0/tcp/0/ws"]
relay:
  rendezvous_addr: "/ip4/203.0.113.50/tcp/7777/wss"
`
	path := writeTestConfig(t, dir, yaml)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigError) {
		t.Errorf("err = %v, want ErrConfigError", err)
	}
}

func TestLoad_BadNamespaceRejected(t *testing.T) {
	dir := t.TempDir()
	yaml := `
namespace: ""
identity:
  key_file: "identity.key"
network:
  listen_addresses: ["/ip4/0.0.0.0/tcp/0/ws"]
`
	path := writeTestConfig(t, dir, yaml)

	_, err := Load(path)
	if !errors.Is(err, ErrBadNamespace) {
		t.Errorf("err = %v, want ErrBadNamespace", err)
	}
}

func TestLoad_MissingIdentityRejected(t *testing.T) {
	dir := t.TempDir()
	yaml := `
namespace: "ns"
network:
  listen_addresses: ["/ip4/0.0.0.0/tcp/0/ws"]
`
	path := writeTestConfig(t, dir, yaml)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigError) {
		t.Errorf("err = %v, want ErrConfigError", err)
	}
}

func TestLoad_MissingListenAddressesRejected(t *testing.T) {
	dir := t.TempDir()
	yaml := `
namespace: "ns"
identity:
  key_file: "identity.key"
`
	path := writeTestConfig(t, dir, yaml)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigError) {
		t.Errorf("err = %v, want ErrConfigError", err)
	}
}

func TestConfigVersionDefaultsTo1(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, testConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1 (default)", cfg.Version)
	}
}

func TestConfigVersionFutureRejected(t *testing.T) {
	dir := t.TempDir()
	yaml := "version: 999\n" + testConfigYAML
	path := writeTestConfig(t, dir, yaml)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigVersionTooNew) {
		t.Errorf("err = %v, want ErrConfigVersionTooNew", err)
	}
}

func TestResolveConfigPaths(t *testing.T) {
	cfg := &Config{Identity: IdentityConfig{KeyFile: "identity.key"}}

	ResolveConfigPaths(cfg, "/home/user/.config/marecchia-node")

	want := "/home/user/.config/marecchia-node/identity.key"
	if cfg.Identity.KeyFile != want {
		t.Errorf("KeyFile = %q, want %q", cfg.Identity.KeyFile, want)
	}
}

func TestResolveConfigPathsAbsolute(t *testing.T) {
	cfg := &Config{Identity: IdentityConfig{KeyFile: "/absolute/path/key"}}

	ResolveConfigPaths(cfg, "/home/user/.config/marecchia-node")

	if cfg.Identity.KeyFile != "/absolute/path/key" {
		t.Errorf("absolute path should not change: %q", cfg.Identity.KeyFile)
	}
}

func TestFindConfigFileExplicit(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, "identity:\n  key_file: x")

	found, err := FindConfigFile(path)
	if err != nil {
		t.Fatalf("FindConfigFile: %v", err)
	}
	if found != path {
		t.Errorf("found = %q, want %q", found, path)
	}
}

func TestFindConfigFileExplicitMissing(t *testing.T) {
	_, err := FindConfigFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestFindConfigFileLocalDir(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "marecchia-node.yaml")
	if err := os.WriteFile(configPath, []byte("identity:\n  key_file: x"), 0600); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	found, err := FindConfigFile("")
	if err != nil {
		t.Fatalf("FindConfigFile: %v", err)
	}
	if found != "marecchia-node.yaml" {
		t.Errorf("found = %q, want %q", found, "marecchia-node.yaml")
	}
}
