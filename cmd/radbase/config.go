package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/runner"
	"github.com/spf13/viper"
)

// Config is the full command configuration. It is read from an optional
// YAML file, RADBASE_* environment variables and command flags, in
// increasing order of precedence.
type Config struct {
	Out      string         `mapstructure:"out"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Sampling SamplingConfig `mapstructure:"sampling"`
	Run      RunConfig      `mapstructure:"run"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

type OracleConfig struct {
	Path    string        `mapstructure:"path"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SamplingConfig struct {
	Regime     string `mapstructure:"regime"`
	Seed       uint64 `mapstructure:"seed"`
	Repeats    int    `mapstructure:"repeats"`
	SampleSize int    `mapstructure:"samplesize"`
}

type RunConfig struct {
	Workers       int     `mapstructure:"workers"`
	LaunchRate    float64 `mapstructure:"launch_rate"`
	FailurePolicy string  `mapstructure:"failure_policy"`
	Deduplicate   bool    `mapstructure:"deduplicate"`
	Override      bool    `mapstructure:"override"`
	Cleanup       bool    `mapstructure:"cleanup"`
	ScratchDir    string  `mapstructure:"scratch_dir"`
	ResumeDir     string  `mapstructure:"resume_dir"`
	Compression   string  `mapstructure:"compression"`
}

// PublishConfig selects where a finished dataset is uploaded.
// Backend is one of local, s3 or minio; empty disables publishing.
type PublishConfig struct {
	Backend      string `mapstructure:"backend"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Name         string `mapstructure:"name"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	PathStyle    bool   `mapstructure:"path_style"`
	CatalogTable string `mapstructure:"catalog_table"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Insecure     bool   `mapstructure:"insecure"`
	Dir          string `mapstructure:"dir"`
	RateLimit    int64  `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TraceConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RADBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("out", "radcal.rdb")

	v.SetDefault("oracle.path", "radcal")
	v.SetDefault("oracle.args", []string{})
	v.SetDefault("oracle.timeout", "5m")

	v.SetDefault("sampling.regime", "tracked")
	v.SetDefault("sampling.seed", 0)
	v.SetDefault("sampling.repeats", runner.DefaultOptions.Repeats)
	v.SetDefault("sampling.samplesize", runner.DefaultOptions.SampleSize)

	v.SetDefault("run.workers", runner.DefaultOptions.Workers)
	v.SetDefault("run.launch_rate", 0)
	v.SetDefault("run.failure_policy", runner.DefaultOptions.FailurePolicy.String())
	v.SetDefault("run.deduplicate", runner.DefaultOptions.Deduplicate)
	v.SetDefault("run.override", false)
	v.SetDefault("run.cleanup", runner.DefaultOptions.Cleanup)
	v.SetDefault("run.scratch_dir", "")
	v.SetDefault("run.resume_dir", "")
	v.SetDefault("run.compression", runner.DefaultOptions.Compression.String())

	v.SetDefault("publish.backend", "")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.name", "")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.path_style", false)
	v.SetDefault("publish.catalog_table", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.insecure", false)
	v.SetDefault("publish.dir", "")
	v.SetDefault("publish.rate_limit", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.sample_ratio", 1.0)
}

// loadConfig reads the optional YAML file at path into v and decodes the
// merged configuration.
func loadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Out == "" {
		return fmt.Errorf("out must not be empty")
	}
	if _, err := newSampler(c.Sampling.Regime); err != nil {
		return err
	}
	if _, err := runner.ParseFailurePolicy(c.Run.FailurePolicy); err != nil {
		return err
	}
	if _, err := dataset.ParseCompression(c.Run.Compression); err != nil {
		return err
	}
	switch c.Publish.Backend {
	case "":
	case "local":
		if c.Publish.Dir == "" {
			return fmt.Errorf("publish backend local needs publish.dir")
		}
	case "s3", "minio":
		if c.Publish.Bucket == "" {
			return fmt.Errorf("publish backend %s needs publish.bucket", c.Publish.Backend)
		}
		if c.Publish.Backend == "minio" && c.Publish.Endpoint == "" {
			return fmt.Errorf("publish backend minio needs publish.endpoint")
		}
	default:
		return fmt.Errorf("unknown publish backend %q", c.Publish.Backend)
	}
	return nil
}
