package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestGetConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		viper.Reset()
		tempDir := t.TempDir()
		t.Chdir(tempDir)

		cfg, err := GetConfig()
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}

		if cfg.BackupKeep != 10 {
			t.Errorf("expected backup_keep 10, got %d", cfg.BackupKeep)
		}
		if cfg.LockTimeout != 10*time.Second {
			t.Errorf("expected lock_timeout 10s, got %v", cfg.LockTimeout)
		}
		if cfg.VeloServeUnit != "veloserve" {
			t.Errorf("expected veloserve unit, got %s", cfg.VeloServeUnit)
		}
		if cfg.ApacheUnit != "httpd" {
			t.Errorf("expected httpd unit, got %s", cfg.ApacheUnit)
		}
		if cfg.HTTPPort != 80 {
			t.Errorf("expected http_port 80, got %d", cfg.HTTPPort)
		}
		if cfg.Port != 60155 {
			t.Errorf("expected port 60155, got %d", cfg.Port)
		}
		if cfg.Version != "dev" {
			t.Errorf("expected dev version, got %s", cfg.Version)
		}

		// Dev mode keeps mutable state under the working directory.
		if !cfg.IsDevMode {
			t.Error("expected dev mode in tests")
		}
		if cfg.RegistryPath != filepath.Join(tempDir, "veloserve.conf") {
			t.Errorf("unexpected dev registry path: %s", cfg.RegistryPath)
		}
		if cfg.ConfigFilePath != filepath.Join(tempDir, "veloctl.yaml") {
			t.Errorf("unexpected config file path: %s", cfg.ConfigFilePath)
		}
	})

	t.Run("FromFile", func(t *testing.T) {
		viper.Reset()
		tempDir := t.TempDir()
		t.Chdir(tempDir)

		content := "apache_unit: apache2\nlock_timeout: 3s\ntoken: s3cret\n"
		if err := os.WriteFile(filepath.Join(tempDir, "veloctl.yaml"), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := GetConfig()
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}

		if cfg.ApacheUnit != "apache2" {
			t.Errorf("expected apache2 unit, got %s", cfg.ApacheUnit)
		}
		if cfg.LockTimeout != 3*time.Second {
			t.Errorf("expected lock_timeout 3s, got %v", cfg.LockTimeout)
		}
		if cfg.Token != "s3cret" {
			t.Errorf("expected token from file, got %q", cfg.Token)
		}

		// Options absent from the file keep their defaults.
		if cfg.VeloServeUnit != "veloserve" {
			t.Errorf("expected default veloserve unit, got %s", cfg.VeloServeUnit)
		}
	})

	t.Run("FromEnv", func(t *testing.T) {
		viper.Reset()
		t.Chdir(t.TempDir())
		t.Setenv("VELOCTL_MONITOR_UNIT", "tailwatchd")

		cfg, err := GetConfig()
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}

		if cfg.MonitorUnit != "tailwatchd" {
			t.Errorf("expected env override, got %s", cfg.MonitorUnit)
		}
	})
}

func TestSetParam(t *testing.T) {
	viper.Reset()
	tempDir := t.TempDir()
	t.Chdir(tempDir)

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if err := CreateConfigFileIfNotExists(cfg); err != nil {
		t.Fatalf("CreateConfigFileIfNotExists failed: %v", err)
	}

	if err := cfg.SetParam(TokenOpt, "abc123"); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if err := cfg.SetParam(BackupKeepOpt, 20); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}

	data, err := os.ReadFile(cfg.ConfigFilePath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	persisted := make(map[string]any)
	if err := yaml.Unmarshal(data, persisted); err != nil {
		t.Fatalf("failed to parse persisted config: %v", err)
	}

	if persisted["token"] != "abc123" {
		t.Errorf("expected persisted token, got %v", persisted["token"])
	}
	if persisted["backup_keep"] != 20 {
		t.Errorf("expected persisted backup_keep 20, got %v", persisted["backup_keep"])
	}

	// Setting one param must not drop another.
	if err := cfg.SetParam(ApacheRootOpt, "/etc/apache2"); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}

	data, _ = os.ReadFile(cfg.ConfigFilePath)
	persisted = make(map[string]any)
	if err := yaml.Unmarshal(data, persisted); err != nil {
		t.Fatalf("failed to parse persisted config: %v", err)
	}
	if persisted["token"] != "abc123" {
		t.Error("earlier params should survive later SetParam calls")
	}
}

func TestToMap(t *testing.T) {
	viper.Reset()
	tempDir := t.TempDir()
	t.Chdir(tempDir)

	content := "token: visible\n"
	if err := os.WriteFile(filepath.Join(tempDir, "veloctl.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	options := cfg.ToMap()
	if options["token"] != "visible" {
		t.Errorf("expected token in options map, got %v", options["token"])
	}
	if options[PortOpt] != "60155" {
		t.Errorf("expected numeric defaults in options map, got %q", options[PortOpt])
	}

	for _, name := range KnownOptions() {
		if name == ApacheRootOpt || name == TokenOpt {
			continue // no default value
		}
		if _, ok := options[name]; !ok {
			t.Errorf("option %s missing from map", name)
		}
	}
}
