// Package config loads the fern configuration from a config file, .env, FERN_
// environment variables and command-line overrides.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/Ramsey-B/fern/pkg/models"
)

const EnvPrefix = "FERN"

type Config struct {
	Mode       ModeConfig       `mapstructure:"mode"`
	Connection ConnectionConfig `mapstructure:"connection"`
	Input      InputConfig      `mapstructure:"input"`
	Output     OutputConfig     `mapstructure:"output"`
	Locator    LocatorConfig    `mapstructure:"locator"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Startup    StartupConfig    `mapstructure:"startup"`
}

type ModeConfig struct {
	// Test computes every mutation without persisting or emitting it
	Test       bool `mapstructure:"test"`
	RemoveOnly bool `mapstructure:"removeOnly"`
}

type ConnectionConfig struct {
	// GroupRemove is the destination of removal notifications
	GroupRemove string `mapstructure:"groupRemove" validate:"required"`
}

type InputConfig struct {
	PrimaryOriginAgencyIDs   []string `mapstructure:"primaryOriginAgencyIDs" validate:"required,min=1,dive,required"`
	SecondaryOriginAgencyIDs []string `mapstructure:"secondaryOriginAgencyIDs" validate:"required,min=1,dive,required"`
	EvaluationMode           string   `mapstructure:"evaluationMode" validate:"omitempty,oneof=manual automatic"`
}

type OutputConfig struct {
	Author         string `mapstructure:"author" validate:"required"`
	AgencyID       string `mapstructure:"agencyID" validate:"required"`
	EvaluationMode string `mapstructure:"evaluationMode" validate:"required,oneof=manual automatic"`
}

type LocatorConfig struct {
	Type                      string        `mapstructure:"type" validate:"required"`
	Profile                   string        `mapstructure:"profile"`
	FixedDepth                *float64      `mapstructure:"fixedDepth"`
	DistanceCutOff            *float64      `mapstructure:"distanceCutOff" validate:"omitempty,gt=0"`
	IgnoreInitialLocation     bool          `mapstructure:"ignoreInitialLocation"`
	UseOriginLocator          bool          `mapstructure:"useOriginLocator"`
	ServiceURL                string        `mapstructure:"serviceURL" validate:"omitempty,url"`
	Available                 []string      `mapstructure:"available"`
	Timeout                   time.Duration `mapstructure:"timeout"`
	DepthUncertaintyTolerance float64       `mapstructure:"depthUncertaintyTolerance" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type DatabaseConfig struct {
	Host                string        `mapstructure:"host"`
	Port                string        `mapstructure:"port"`
	User                string        `mapstructure:"user"`
	Password            string        `mapstructure:"password"`
	Name                string        `mapstructure:"name"`
	SSLMode             string        `mapstructure:"sslMode"`
	MaxOpenConns        int           `mapstructure:"maxOpenConns"`
	MaxIdleConns        int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime     time.Duration `mapstructure:"connMaxLifetime"`
	MigrationFolderPath string        `mapstructure:"migrationFolderPath"`
	Migrate             bool          `mapstructure:"migrate"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	InputTopic    string   `mapstructure:"inputTopic"`
	ConsumerGroup string   `mapstructure:"consumerGroup"`
	FromBeginning bool     `mapstructure:"fromBeginning"`
	OutputTopic   string   `mapstructure:"outputTopic" validate:"required"`
	BatchSize     int      `mapstructure:"batchSize"`
	// BatchTimeout is in milliseconds
	BatchTimeout int    `mapstructure:"batchTimeout"`
	RequiredAcks int    `mapstructure:"requiredAcks"`
	Compression  string `mapstructure:"compression" validate:"omitempty,oneof=gzip snappy lz4 zstd none"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PresenceTTL time.Duration `mapstructure:"presenceTTL"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Protocol string `mapstructure:"protocol" validate:"omitempty,oneof=grpc http"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type StartupConfig struct {
	MaxAttempts int `mapstructure:"maxAttempts" validate:"gte=1"`
}

var defaults = map[string]any{
	"mode.test":                         false,
	"mode.removeOnly":                   false,
	"connection.groupRemove":            "fern-remove",
	"output.evaluationMode":             "automatic",
	"locator.type":                      "LOCSAT",
	"locator.profile":                   "iasp91",
	"locator.ignoreInitialLocation":     false,
	"locator.useOriginLocator":          false,
	"locator.serviceURL":                "http://localhost:8080",
	"locator.available":                 []string{"LOCSAT"},
	"locator.timeout":                   60 * time.Second,
	"locator.depthUncertaintyTolerance": 1e-9,
	"log.level":                         "info",
	"log.pretty":                        false,
	"database.host":                     "localhost",
	"database.port":                     "5432",
	"database.user":                     "fern",
	"database.name":                     "fern",
	"database.sslMode":                  "disable",
	"database.maxOpenConns":             25,
	"database.maxIdleConns":             10,
	"database.connMaxLifetime":          10 * time.Second,
	"database.migrationFolderPath":      "db/pg",
	"database.migrate":                  false,
	"kafka.brokers":                     []string{"localhost:9092"},
	"kafka.inputTopic":                  "catalog-notifications",
	"kafka.consumerGroup":               "fern-consumer",
	"kafka.fromBeginning":               false,
	"kafka.outputTopic":                 "fern-catalog",
	"kafka.batchSize":                   100,
	"kafka.batchTimeout":                100,
	"kafka.requiredAcks":                1,
	"kafka.compression":                 "snappy",
	"redis.enabled":                     false,
	"redis.host":                        "localhost",
	"redis.port":                        6379,
	"redis.db":                          0,
	"redis.presenceTTL":                 10 * time.Minute,
	"tracing.enabled":                   false,
	"tracing.protocol":                  "grpc",
	"tracing.endpoint":                  "localhost:4317",
	"tracing.insecure":                  true,
	"http.port":                         3010,
	"startup.maxAttempts":               5,
}

// keys without a default that may still come from the environment
var envOnly = []string{
	"input.primaryOriginAgencyIDs",
	"input.secondaryOriginAgencyIDs",
	"input.evaluationMode",
	"output.author",
	"output.agencyID",
	"locator.fixedDepth",
	"locator.distanceCutOff",
	"database.password",
	"redis.password",
}

// Prepare registers defaults and environment bindings on v and reads the optional
// .env and config file. Overrides set on v afterwards win over both.
func Prepare(v *viper.Viper, file string) error {
	_ = godotenv.Load()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnly {
		if err := v.BindEnv(key); err != nil {
			return errors.Wrapf(err, "failed to bind environment for %s", key)
		}
	}

	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", file)
	}
	return nil
}

// Decode unmarshals and validates the configuration held by v
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load is Prepare followed by Decode
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := Prepare(v, file); err != nil {
		return nil, err
	}
	return Decode(v)
}

// RequiredEvaluationMode is the mode input origins must carry, or unset for any
func (c InputConfig) RequiredEvaluationMode() models.EvaluationMode {
	mode, err := models.ParseEvaluationMode(c.EvaluationMode)
	if err != nil {
		return models.EvaluationModeUnset
	}
	return mode
}

// Mode is the evaluation mode stamped on merged origins
func (c OutputConfig) Mode() models.EvaluationMode {
	mode, err := models.ParseEvaluationMode(c.EvaluationMode)
	if err != nil {
		return models.EvaluationModeAutomatic
	}
	return mode
}
