package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	LoadConfig("")
	if AppConfig.Network.CloseGroupSize != 8 {
		t.Fatalf("expected default close group size 8, got %d", AppConfig.Network.CloseGroupSize)
	}
	if AppConfig.Swarm.DiscoveryTag != "vaultmesh-mdns" {
		t.Fatalf("expected default discovery tag, got %s", AppConfig.Swarm.DiscoveryTag)
	}
}

func TestLoadConfigFileOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	tmp := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmp, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data := []byte("network:\n  close_group_size: 12\nswarm:\n  discovery_tag: test-tag\n")
	if err := os.WriteFile(filepath.Join(tmp, "config", "default.yaml"), data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Network.CloseGroupSize != 12 {
		t.Fatalf("expected overridden close group size 12, got %d", AppConfig.Network.CloseGroupSize)
	}
	if AppConfig.Swarm.DiscoveryTag != "test-tag" {
		t.Fatalf("expected overridden discovery tag, got %s", AppConfig.Swarm.DiscoveryTag)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	os.Setenv("VAULTMESH_WALLET_DIR", "/tmp/custom-wallet")
	defer os.Unsetenv("VAULTMESH_WALLET_DIR")

	LoadConfig("")
	if AppConfig.Wallet.Dir != "/tmp/custom-wallet" {
		t.Fatalf("expected env override of wallet dir, got %s", AppConfig.Wallet.Dir)
	}
}
