package config

// Option names as they appear in veloctl.yaml and in VELOCTL_* environment
// variables.
const (
	RegistryPathOpt     = "registry_path"
	BackupKeepOpt       = "backup_keep"
	LockTimeoutOpt      = "lock_timeout"
	SwitchLockFileOpt   = "switch_lock_file"
	StepTimeoutOpt      = "step_timeout"
	VeloServeUnitOpt    = "veloserve_unit"
	VeloServeBinOpt     = "veloserve_bin"
	VeloServePidFileOpt = "veloserve_pid_file"
	ApacheUnitOpt       = "apache_unit"
	ApacheRootOpt       = "apache_root"
	ChkservdDirOpt      = "chkservd_dir"
	MonitorUnitOpt      = "monitor_unit"
	HTTPPortOpt         = "http_port"
	PortOpt             = "port"
	TokenOpt            = "token"
	LogDirOpt           = "log_dir"
)

// KnownOptions lists every option the config file accepts.
func KnownOptions() []string {
	return []string{
		RegistryPathOpt,
		BackupKeepOpt,
		LockTimeoutOpt,
		SwitchLockFileOpt,
		StepTimeoutOpt,
		VeloServeUnitOpt,
		VeloServeBinOpt,
		VeloServePidFileOpt,
		ApacheUnitOpt,
		ApacheRootOpt,
		ChkservdDirOpt,
		MonitorUnitOpt,
		HTTPPortOpt,
		PortOpt,
		TokenOpt,
		LogDirOpt,
	}
}
