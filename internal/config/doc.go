// Package config manages the veloctl agent settings stored in YAML format.
//
// Agent settings are distinct from the VeloServe registry: the registry
// (internal/registry) holds the virtual hosts served by VeloServe, while
// this package holds the knobs of the agent itself. Settings live in
// veloctl.yaml under /etc/veloserve in production, or under the working
// directory in dev mode.
//
// # Resolution Order
//
// Settings resolve through viper in the usual order:
//
//  1. VELOCTL_* environment variables (VELOCTL_REGISTRY_PATH, ...)
//  2. veloctl.yaml
//  3. Built-in defaults
//
// Example veloctl.yaml:
//
//	registry_path: /etc/veloserve/veloserve.conf
//	lock_timeout: 10s
//	apache_unit: httpd
//	port: 60155
//	token: s3cret
//
// # Hot Reload
//
// GetConfig installs a file watcher. Edits to veloctl.yaml (including those
// made through SetParam) refresh the dynamic fields of the returned Config
// in place, so long-running consumers such as the admin API pick up changes
// without a restart. Static fields (LogFile, ConfigFilePath, Version,
// IsDevMode) are fixed at load time.
//
// # Usage
//
//	cfg, err := config.GetConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	repo := registry.NewRepository(cfg.RegistryPath, cfg.LockTimeout, log)
//
//	// Persist a setting change
//	err = cfg.SetParam(config.BackupKeepOpt, 20)
package config
