package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"flowboard/internal/domain"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "flowboard.yml"

// Config is the top-level flowboard.yml configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	ExportedBy string           `yaml:"exported_by"`
	Storage    StorageConfig    `yaml:"storage"`
	HTTP       HTTPConfig       `yaml:"http"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Import     ImportConfig     `yaml:"import"`
	SaveStatus SaveStatusConfig `yaml:"save_status"`
	Log        LogConfig        `yaml:"log"`
}

// StorageConfig selects and addresses the document store.
type StorageConfig struct {
	Driver domain.StoreDriver `yaml:"driver"`
	// DSN for mysql/postgres, URI for mongodb, address for redis.
	DSN string `yaml:"dsn,omitempty"`
	// Path of the SQLite file. Defaults to <data_dir>/boards.db.
	Path      string `yaml:"path,omitempty"`
	Database  string `yaml:"database,omitempty"`  // mongodb
	Namespace string `yaml:"namespace,omitempty"` // redis key prefix
	Password  string `yaml:"password,omitempty"`  // redis
	DB        int    `yaml:"db,omitempty"`        // redis
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// CleanupConfig drives the scheduled removal of stale boards.
type CleanupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Days     int    `yaml:"days"`
}

// ImportConfig enables the inbox watcher when InboxDir is set.
type ImportConfig struct {
	InboxDir string `yaml:"inbox_dir,omitempty"`
}

type SaveStatusConfig struct {
	RevertAfter time.Duration `yaml:"revert_after"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a configuration for a local SQLite database under
// ~/.local/share/flowboard.
func Default() *Config {
	dataDir := "flowboard-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "flowboard")
	}
	return &Config{
		DataDir:    dataDir,
		ExportedBy: "flowboard",
		Storage: StorageConfig{
			Driver:    domain.StoreDriverSQLite,
			Database:  "flowboard",
			Namespace: "default",
		},
		HTTP: HTTPConfig{
			Addr:           "127.0.0.1:7420",
			AllowedOrigins: []string{"*"},
		},
		Cleanup: CleanupConfig{
			Enabled:  false,
			Schedule: "@daily",
			Days:     30,
		},
		SaveStatus: SaveStatusConfig{RevertAfter: 3 * time.Second},
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies FLOWBOARD_* environment
// overrides and validates the result. An empty path loads DefaultFile if it
// exists and the defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FLOWBOARD_DRIVER"); v != "" {
		c.Storage.Driver = domain.StoreDriver(v)
	}
	if v := getenv("FLOWBOARD_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := getenv("FLOWBOARD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("FLOWBOARD_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) resolvePaths() {
	if c.Storage.Driver == domain.StoreDriverSQLite && c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "boards.db")
	}
}

// Validate checks the configuration for values the stores and schedulers
// cannot work with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case domain.StoreDriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for sqlite")
		}
	case domain.StoreDriverMySQL, domain.StoreDriverPostgres, domain.StoreDriverMongoDB:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for %s", c.Storage.Driver)
		}
	case domain.StoreDriverRedis:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn (redis address) is required for redis")
		}
		if c.Storage.Namespace == "" {
			return fmt.Errorf("storage.namespace cannot be empty for redis")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q (must be 'sqlite', 'mysql', 'postgres', 'mongodb', or 'redis')", c.Storage.Driver)
	}

	if c.ExportedBy == "" {
		return fmt.Errorf("exported_by cannot be empty")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr cannot be empty")
	}
	if c.Cleanup.Days < 1 {
		return fmt.Errorf("cleanup.days must be >= 1, got %d", c.Cleanup.Days)
	}
	if _, err := cron.ParseStandard(c.Cleanup.Schedule); err != nil {
		return fmt.Errorf("invalid cleanup.schedule %q: %w", c.Cleanup.Schedule, err)
	}
	if c.SaveStatus.RevertAfter <= 0 {
		return fmt.Errorf("save_status.revert_after must be positive, got %s", c.SaveStatus.RevertAfter)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return nil
}

// Logger builds the process logger. Output goes to stderr so stdio
// transports keep stdout to themselves.
func (l LogConfig) Logger() (*zap.Logger, error) {
	var zc zap.Config
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
