package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/protocol/vm"
)

var (
	// CommonConfig means config object
	CommonConfig *Config
)

type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`
	// Options for services
	VM   *VMConfig   `mapstructure:"vm"`
	Gate *GateConfig `mapstructure:"gate"`
}

// Default configurable parameters.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig: DefaultBaseConfig(),
		VM:         DefaultVMConfig(),
		Gate:       DefaultGateConfig(),
	}
}

// Set the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

//-----------------------------------------------------------------------------
// BaseConfig
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	//log level to set
	LogLevel string `mapstructure:"log_level"`

	// log file name
	LogFile string `mapstructure:"log_file"`

	// Database backend: leveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`
}

// Default configurable base parameters.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:  "info",
		LogFile:   "log",
		DBBackend: "leveldb",
		DBPath:    "data",
	}
}

func (b BaseConfig) DBDir() string {
	return rootify(b.DBPath, b.RootDir)
}

func (b BaseConfig) LogDir() string {
	return rootify(b.LogFile, b.RootDir)
}

// VMConfig bounds program execution.
type VMConfig struct {
	// Instructions a single program may execute.
	RunLimit int64 `mapstructure:"run_limit"`
}

func DefaultVMConfig() *VMConfig {
	return &VMConfig{
		RunLimit: vm.DefaultRunLimit,
	}
}

type GateConfig struct {
	// Compiled agreement programs kept in memory.
	CacheSize int `mapstructure:"cache_size"`
	// Times a transaction is re-run after another one changed the
	// arrays it read.
	MaxRetries int `mapstructure:"max_retries"`
}

func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		CacheSize:  256,
		MaxRetries: 8,
	}
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// DefaultDataDir is the default data directory to use for the databases and other
// persistence requirements.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := homeDir()
	if home == "" {
		return "./.pairwyse"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Pairwyse")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Pairwyse")
	default:
		return filepath.Join(home, ".pairwyse")
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
