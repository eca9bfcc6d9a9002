package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix         = "SENTISCOPE_"
	DefaultConfigFile = "config/config.yaml"
)

// Model backends.
const (
	BackendONNX         = "onnx"
	BackendInferenceAPI = "inference-api"
	BackendOpenAI       = "openai"
	BackendVADER        = "vader"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Log          LogConfig          `koanf:"log"`
	Model        ModelConfig        `koanf:"model"`
	InferenceAPI InferenceAPIConfig `koanf:"inference_api"`
	OpenAI       OpenAIConfig       `koanf:"openai"`
	Cache        CacheConfig        `koanf:"cache"`
	Recorder     RecorderConfig     `koanf:"recorder"`
	Upload       UploadConfig       `koanf:"upload"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// gin mode: debug, release or test
	Mode string `koanf:"mode"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type ModelConfig struct {
	Backend  string `koanf:"backend"`
	Primary  string `koanf:"primary"`
	Fallback string `koanf:"fallback"`
	Dir      string `koanf:"dir"`
	// Path to libonnxruntime; empty uses the hugot default.
	OnnxLibrary string `koanf:"onnx_library"`
	Required    bool   `koanf:"required"`
}

// Candidates returns the model names to try, in order.
func (m ModelConfig) Candidates() []string {
	names := make([]string, 0, 2)
	if m.Primary != "" {
		names = append(names, m.Primary)
	}
	if m.Fallback != "" && m.Fallback != m.Primary {
		names = append(names, m.Fallback)
	}
	return names
}

type InferenceAPIConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Token    string        `koanf:"token"`
	Timeout  time.Duration `koanf:"timeout"`
}

type OpenAIConfig struct {
	APIKey string `koanf:"api_key"`
	// Chat model used in place of model.primary/fallback by the openai backend.
	Model string `koanf:"model"`
}

type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Address  string        `koanf:"address"`
	Password string        `koanf:"password"`
	TLS      bool          `koanf:"tls"`
	TTL      time.Duration `koanf:"ttl"`
}

type RecorderConfig struct {
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Kafka    KafkaConfig    `koanf:"kafka"`
}

type DynamoDBConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Table    string `koanf:"table"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

type KafkaConfig struct {
	Enabled bool   `koanf:"enabled"`
	Broker  string `koanf:"broker"`
	Topic   string `koanf:"topic"`
}

type UploadConfig struct {
	MaxBytes int64 `koanf:"max_bytes"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Log: LogConfig{Level: "info"},
		Model: ModelConfig{
			Backend:  BackendONNX,
			Primary:  "cardiffnlp/twitter-roberta-base-sentiment-latest",
			Fallback: "nlptown/bert-base-multilingual-uncased-sentiment",
			Dir:      "./models",
			Required: true,
		},
		InferenceAPI: InferenceAPIConfig{
			Endpoint: "https://api-inference.huggingface.co/models",
			Timeout:  30 * time.Second,
		},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
		Cache: CacheConfig{
			Address: "localhost:6379",
			TTL:     24 * time.Hour,
		},
		Recorder: RecorderConfig{
			DynamoDB: DynamoDBConfig{
				Table:  "SentimentAnalyses",
				Region: "us-west-2",
			},
			Kafka: KafkaConfig{
				Broker: "localhost:29092",
				Topic:  "sentiment-analyses",
			},
		},
		Upload: UploadConfig{MaxBytes: 16 << 20},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and SENTISCOPE_ prefixed environment variables, in that order.
// Nested keys use a double underscore: SENTISCOPE_MODEL__BACKEND=vader.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = DefaultConfigFile
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ModelNames returns the names handed to the loader for the configured
// backend.
func (c *Config) ModelNames() []string {
	switch c.Model.Backend {
	case BackendVADER:
		return []string{"vader"}
	case BackendOpenAI:
		return []string{c.OpenAI.Model}
	default:
		return c.Model.Candidates()
	}
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendONNX, BackendInferenceAPI, BackendOpenAI, BackendVADER:
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}
	switch c.Model.Backend {
	case BackendVADER:
	case BackendOpenAI:
		if c.OpenAI.Model == "" {
			return errors.New("openai.model is required for the openai backend")
		}
	default:
		if len(c.Model.Candidates()) == 0 {
			return errors.New("at least one model name is required")
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload max_bytes %d", c.Upload.MaxBytes)
	}
	return nil
}
