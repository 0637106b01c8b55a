// Package config loads reconkit settings from an optional YAML file,
// RECONKIT_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/exploopio/reconkit/pkg/compress"
	"github.com/exploopio/reconkit/pkg/core"
	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/events"
	"github.com/exploopio/reconkit/pkg/nlp"
	"github.com/exploopio/reconkit/pkg/report"
	"github.com/exploopio/reconkit/pkg/scanners"
	"github.com/exploopio/reconkit/pkg/store"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. RECONKIT_LOG_LEVEL.
	EnvPrefix = "RECONKIT"

	// FileName is the config file name searched for, without extension.
	FileName = "reconkit"
)

// Config is the full configuration for both commands.
type Config struct {
	Log      core.LogConfig               `mapstructure:"log"`
	Report   ReportConfig                 `mapstructure:"report"`
	Tools    map[string]scanners.Override `mapstructure:"tools"`
	Database store.Config                 `mapstructure:"database"`
	Parser   ParserConfig                 `mapstructure:"parser"`
	Events   events.RedisConfig           `mapstructure:"events"`
	Metrics  MetricsConfig                `mapstructure:"metrics"`
}

// ReportConfig configures webscan report files.
type ReportConfig struct {
	Dir         string `mapstructure:"dir"`
	Compression string `mapstructure:"compression"` // none, zstd, gzip
	Ledger      bool   `mapstructure:"ledger"`      // record runs in the database
}

// ParserConfig configures resparse.
type ParserConfig struct {
	Dir    string `mapstructure:"dir"`
	Tagger string `mapstructure:"tagger"` // prose, rules, none
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is written in Prometheus text format when set.
	Textfile string `mapstructure:"textfile"`
}

// Loader reads configuration with viper.
type Loader struct {
	v    *viper.Viper
	path string
}

// NewLoader creates a loader. An empty path searches for reconkit.yaml in
// ".", "./configs" and "$HOME/.config/reconkit"; a missing file is fine.
// An explicit path must exist.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v, path: path}
}

// BindFlag lets a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not found", key)
	}
	return l.v.BindPFlag(key, flag)
}

// ConfigFileUsed returns the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads, decodes and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	if l.path != "" {
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("read %s", l.path), err)
		}
	} else {
		l.v.SetConfigName(FileName)
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "reconkit"))
		}
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.E(errors.KindInvalidInput, op, "read config", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.E(errors.KindInvalidInput, op, "decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	logDefaults := core.DefaultLogConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.output", logDefaults.Output)
	v.SetDefault("log.caller", false)
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	v.SetDefault("log.compress", false)

	v.SetDefault("report.dir", report.DefaultDir())
	v.SetDefault("report.compression", string(compress.AlgorithmNone))
	v.SetDefault("report.ledger", false)

	v.SetDefault("database.driver", string(store.DriverSQLite))
	v.SetDefault("database.dsn", store.DefaultDSN)

	v.SetDefault("parser.dir", "./scan_results")
	v.SetDefault("parser.tagger", nlp.TaggerProse)

	v.SetDefault("events.redis_addr", "")
	v.SetDefault("events.redis_password", "")
	v.SetDefault("events.redis_db", 0)
	v.SetDefault("events.channel", events.DefaultChannel)
	v.SetDefault("events.timeout", "5s")

	v.SetDefault("metrics.textfile", "")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	v := core.NewValidator()

	v.OneOf("log.format", strings.ToLower(c.Log.Format), []string{"text", "json"})
	v.OneOf("log.output", strings.ToLower(c.Log.Output), []string{"stdout", "stderr", "file"})
	if strings.EqualFold(c.Log.Output, "file") {
		v.Required("log.file_path", c.Log.FilePath)
	}

	_, err := compress.ParseAlgorithm(c.Report.Compression)
	v.Check("report.compression", err)

	driver, err := store.ParseDriver(string(c.Database.Driver))
	v.Check("database.driver", err)

	_, err = nlp.New(c.Parser.Tagger)
	v.Check("parser.tagger", err)

	v.Min("events.redis_db", c.Events.DB, 0)
	v.MinDuration("events.timeout", c.Events.Timeout, 0)

	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, known := scanners.Lookup(name)
		v.Custom("tools."+name, func() bool { return known }, "unknown tool")
		v.MinDuration("tools."+name+".timeout", c.Tools[name].Timeout, 0)
	}

	if err := v.Validate(); err != nil {
		return errors.E(errors.KindInvalidInput, "config.Validate", err.Error(), errors.ErrInvalidConfig)
	}
	c.Database.Driver = driver
	return nil
}
