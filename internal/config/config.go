package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	FFmpeg  FFmpegConfig
	Output  OutputConfig
	Storage StorageConfig
	Logger  Logger
}

type AppConfig struct {
	AppVersion string
	Mode       string
}

type APIConfig struct {
	BaseURL         string
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

type FFmpegConfig struct {
	Paths       []string
	MaxCPUUsage float64
}

type OutputConfig struct {
	Dir string
}

type StorageConfig struct {
	Path string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.Is(err, configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
