package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/unknwon/com"
	"gopkg.in/yaml.v3"
)

const (
	defaultRegistryPath     = "/etc/veloserve/veloserve.conf"
	defaultBackupKeep       = 10
	defaultLockTimeout      = 10 * time.Second
	defaultSwitchLockFile   = "/var/run/veloctl.switch.lock"
	defaultStepTimeout      = 60 * time.Second
	defaultVeloServeUnit    = "veloserve"
	defaultVeloServeBin     = "veloserve"
	defaultVeloServePidFile = "/var/run/veloserve.pid"
	defaultApacheUnit       = "httpd"
	defaultChkservdDir      = "/etc/chkserv.d"
	defaultMonitorUnit      = "chkservd"
	defaultHTTPPort         = 80
	defaultPort             = 60155
	defaultLogDir           = "/var/log/veloserve"

	configFileName = "veloctl"
)

// mode is switched to "prod" in release builds via
// -ldflags "-X github.com/veloserve/veloctl/internal/config.mode=prod".
var mode = "dev"

// Version is set at build time via ldflags.
var Version string

// Config holds the agent settings. Static fields are fixed at load time;
// the rest track the config file through viper and are refreshed when the
// file changes on disk.
type Config struct {
	RegistryPath     string
	BackupKeep       int
	LockTimeout      time.Duration
	SwitchLockFile   string
	StepTimeout      time.Duration
	VeloServeUnit    string
	VeloServeBin     string
	VeloServePidFile string
	ApacheUnit       string
	ApacheRoot       string
	ChkservdDir      string
	MonitorUnit      string
	HTTPPort         int
	Port             int
	Token            string
	LogDir           string

	LogFile        string
	ConfigFilePath string
	IsDevMode      bool
	Version        string

	rootPath string
}

// GetConfig loads the agent configuration. In dev mode the config file and
// mutable state live under the working directory; in prod they live under
// /etc and /var. The file is optional, defaults apply when it is absent, and
// VELOCTL_* environment variables override it.
func GetConfig() (*Config, error) {
	var rootPath string

	isDevMode := mode != "prod"

	if isDevMode {
		wd, err := os.Getwd()

		if err != nil {
			return nil, err
		}

		rootPath = wd

		if filepath.Base(wd) == "cmd" {
			rootPath = filepath.Dir(wd)
		}
	} else {
		rootPath = "/etc/veloserve"
	}

	configFilePath := filepath.Join(rootPath, configFileName+".yaml")

	viper.AddConfigPath(filepath.Dir(configFilePath))
	viper.SetConfigName(configFileName)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("veloctl")

	viper.SetDefault(RegistryPathOpt, defaultRegistryPath)
	viper.SetDefault(BackupKeepOpt, defaultBackupKeep)
	viper.SetDefault(LockTimeoutOpt, defaultLockTimeout)
	viper.SetDefault(SwitchLockFileOpt, defaultSwitchLockFile)
	viper.SetDefault(StepTimeoutOpt, defaultStepTimeout)
	viper.SetDefault(VeloServeUnitOpt, defaultVeloServeUnit)
	viper.SetDefault(VeloServeBinOpt, defaultVeloServeBin)
	viper.SetDefault(VeloServePidFileOpt, defaultVeloServePidFile)
	viper.SetDefault(ApacheUnitOpt, defaultApacheUnit)
	viper.SetDefault(ChkservdDirOpt, defaultChkservdDir)
	viper.SetDefault(MonitorUnitOpt, defaultMonitorUnit)
	viper.SetDefault(HTTPPortOpt, defaultHTTPPort)
	viper.SetDefault(PortOpt, defaultPort)
	viper.SetDefault(LogDirOpt, defaultLogDir)

	if isDevMode {
		viper.SetDefault(RegistryPathOpt, filepath.Join(rootPath, "veloserve.conf"))
		viper.SetDefault(SwitchLockFileOpt, filepath.Join(rootPath, "veloctl.switch.lock"))
		viper.SetDefault(ChkservdDirOpt, filepath.Join(rootPath, "chkserv.d"))
	}

	if com.IsFile(configFilePath) {
		configFile, err := os.OpenFile(configFilePath, os.O_RDONLY, 0644)

		if err != nil {
			return nil, err
		}

		defer configFile.Close()

		if err := viper.ReadConfig(configFile); err != nil {
			return nil, err
		}
	}

	if Version == "" {
		Version = "dev"
	}

	config := &Config{
		ConfigFilePath: configFilePath,
		IsDevMode:      isDevMode,
		Version:        Version,
		rootPath:       rootPath,
	}

	if isDevMode {
		config.LogFile = filepath.Join(rootPath, "veloctl.log")
	} else {
		config.LogFile = filepath.Join(viper.GetString(LogDirOpt), "veloctl.log")
	}

	setDynamicParams(config)

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		setDynamicParams(config)
	})

	return config, nil
}

// ToMap returns the scalar settings as seen by viper, for display.
func (c *Config) ToMap() map[string]string {
	settings := viper.AllSettings()
	options := make(map[string]string)

	for key, value := range settings {
		switch value.(type) {
		case string, bool, int, int64, float64, time.Duration:
			options[key] = fmt.Sprintf("%v", value)
		}
	}

	return options
}

// SetParam persists a single option to the config file. Viper's file watch
// picks the change up and refreshes the dynamic fields.
func (c *Config) SetParam(name string, value any) error {
	data, err := os.ReadFile(c.ConfigFilePath)

	if err != nil {
		return err
	}

	confMap := make(map[string]any)
	err = yaml.Unmarshal(data, confMap)

	if err != nil {
		return err
	}

	confMap[name] = value
	data, err = yaml.Marshal(confMap)

	if err != nil {
		return err
	}

	return os.WriteFile(c.ConfigFilePath, data, 0644)
}

// CreateConfigFileIfNotExists creates an empty config file so SetParam and
// the file watcher have something to work on.
func CreateConfigFileIfNotExists(config *Config) error {
	if com.IsFile(config.ConfigFilePath) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(config.ConfigFilePath), 0755); err != nil {
		return err
	}

	file, err := os.Create(config.ConfigFilePath)

	if err != nil {
		return err
	}

	defer file.Close()

	return nil
}

func setDynamicParams(c *Config) {
	c.RegistryPath = viper.GetString(RegistryPathOpt)
	c.BackupKeep = viper.GetInt(BackupKeepOpt)
	c.LockTimeout = viper.GetDuration(LockTimeoutOpt)
	c.SwitchLockFile = viper.GetString(SwitchLockFileOpt)
	c.StepTimeout = viper.GetDuration(StepTimeoutOpt)
	c.VeloServeUnit = viper.GetString(VeloServeUnitOpt)
	c.VeloServeBin = viper.GetString(VeloServeBinOpt)
	c.VeloServePidFile = viper.GetString(VeloServePidFileOpt)
	c.ApacheUnit = viper.GetString(ApacheUnitOpt)
	c.ApacheRoot = viper.GetString(ApacheRootOpt)
	c.ChkservdDir = viper.GetString(ChkservdDirOpt)
	c.MonitorUnit = viper.GetString(MonitorUnitOpt)
	c.HTTPPort = viper.GetInt(HTTPPortOpt)
	c.Port = viper.GetInt(PortOpt)
	c.Token = viper.GetString(TokenOpt)
	c.LogDir = viper.GetString(LogDirOpt)
}
