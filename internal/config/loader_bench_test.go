package config

import (
	"testing"
)

func BenchmarkLoad(b *testing.B) {
	dir := b.TempDir()
	path := writeTestConfig(b, dir, testConfigYAML)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Load(path)
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := &Config{
		Namespace: "marecchia-test-net",
		Identity:  IdentityConfig{KeyFile: "key"},
		Network:   NetworkConfig{ListenAddresses: []string{"/ip4/0.0.0.0/tcp/0"}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.Validate()
	}
}
