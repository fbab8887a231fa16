package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// SimulationParams are the construction parameters of a cleaning model.
type SimulationParams struct {
	Robots     int  `mapstructure:"robots"`
	DirtyCells int  `mapstructure:"dirty_cells"` // total dirty spots to create
	Width      int  `mapstructure:"width"`
	Height     int  `mapstructure:"height"`
	MaxSteps   int  `mapstructure:"max_steps"`
	Torus      bool `mapstructure:"torus"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type Config struct {
	Seed       int64            `mapstructure:"seed"`
	Simulation SimulationParams `mapstructure:",squash"`

	StepInterval    time.Duration `mapstructure:"step_interval"` // pause between ticks, 0 runs flat out
	ShowProgress    bool          `mapstructure:"show_progress"`
	RecordPositions bool          `mapstructure:"record_positions"`

	OutputFormat      string             `mapstructure:"output_format"`
	OutputPath        string             `mapstructure:"output_path"`
	OutputFolder      string             `mapstructure:"output_folder"`
	OutputDestination string             `mapstructure:"output_destination"`
	CloudStorage      CloudStorageConfig `mapstructure:"cloud_storage"`

	KafkaBrokerList  string `mapstructure:"kafka_broker_list"`
	KafkaTopicPrefix string `mapstructure:"kafka_topic_prefix"`

	Database DatabaseConfig `mapstructure:"database"`
}

// SetDefaults registers the default value of every configuration key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("seed", 0)
	v.SetDefault("robots", 5)
	v.SetDefault("dirty_cells", 10)
	v.SetDefault("width", 10)
	v.SetDefault("height", 10)
	v.SetDefault("max_steps", 100)
	v.SetDefault("torus", true)
	v.SetDefault("step_interval", "0s")
	v.SetDefault("show_progress", false)
	v.SetDefault("record_positions", false)
	v.SetDefault("output_format", OutputFormatConsole)
	v.SetDefault("output_path", "output")
	v.SetDefault("output_folder", "cleanbotsim")
	v.SetDefault("output_destination", OutputDestinationLocal)
	v.SetDefault("cloud_storage.provider", "s3")
	v.SetDefault("cloud_storage.region", "eu-west-1")
	v.SetDefault("kafka_broker_list", "localhost:9092")
	v.SetDefault("kafka_topic_prefix", "")
	v.SetDefault("database.url", "")
}

// LoadConfig initializes and reads the configuration using the global Viper instance
func LoadConfig(cfgFile string) (*Config, error) {
	return LoadConfigFrom(viper.GetViper(), cfgFile)
}

// LoadConfigFrom reads the configuration file (if any), environment and defaults
// held by v and decodes them into a validated Config.
func LoadConfigFrom(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("cleanbotsim")
	}

	v.SetEnvPrefix("CLEANSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the simulation parameters.
func (p SimulationParams) Validate() error {
	switch {
	case p.Width < 1:
		return &InvalidConfigurationError{Field: "width", Value: p.Width, Reason: "must be at least 1"}
	case p.Height < 1:
		return &InvalidConfigurationError{Field: "height", Value: p.Height, Reason: "must be at least 1"}
	case p.Robots < 0:
		return &InvalidConfigurationError{Field: "robots", Value: p.Robots, Reason: "must not be negative"}
	case p.DirtyCells < 0:
		return &InvalidConfigurationError{Field: "dirty_cells", Value: p.DirtyCells, Reason: "must not be negative"}
	case p.MaxSteps < 1:
		return &InvalidConfigurationError{Field: "max_steps", Value: p.MaxSteps, Reason: "must be at least 1"}
	}
	return nil
}

// Validate checks the simulation parameters and the output settings.
func (cfg *Config) Validate() error {
	if err := cfg.Simulation.Validate(); err != nil {
		return err
	}
	if cfg.StepInterval < 0 {
		return &InvalidConfigurationError{Field: "step_interval", Value: cfg.StepInterval, Reason: "must not be negative"}
	}
	switch cfg.OutputFormat {
	case OutputFormatConsole, OutputFormatJSON, OutputFormatCSV, OutputFormatParquet,
		OutputFormatKafka, OutputFormatPostgres, OutputFormatNone:
	default:
		return &InvalidConfigurationError{Field: "output_format", Value: cfg.OutputFormat, Reason: "unsupported output format"}
	}
	switch cfg.OutputDestination {
	case OutputDestinationLocal:
	case OutputDestinationS3:
		if cfg.OutputFormat != OutputFormatParquet {
			return &InvalidConfigurationError{Field: "output_destination", Value: cfg.OutputDestination, Reason: "cloud storage is only supported for parquet output"}
		}
		if cfg.CloudStorage.BucketName == "" {
			return &InvalidConfigurationError{Field: "cloud_storage.bucket_name", Value: "", Reason: "required for s3 destination"}
		}
	default:
		return &InvalidConfigurationError{Field: "output_destination", Value: cfg.OutputDestination, Reason: "unsupported output destination"}
	}
	if cfg.OutputFormat == OutputFormatPostgres && cfg.Database.URL == "" {
		return &InvalidConfigurationError{Field: "database.url", Value: "", Reason: "required for postgres output"}
	}
	return nil
}
