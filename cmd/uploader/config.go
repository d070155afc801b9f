package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the uploader's configuration. Every key can be set in the config
// file or as an environment variable with the FE2AUDIO_ prefix, e.g.
// FE2AUDIO_API_URL.
type Config struct {
	APIURL           string        `mapstructure:"api_url"`
	Token            string        `mapstructure:"token"`
	CredentialSecret string        `mapstructure:"credential_secret"`
	UploadDomain     string        `mapstructure:"upload_domain"`
	BlobEndpoint     string        `mapstructure:"blob_endpoint"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Debug            bool          `mapstructure:"debug"`
}

func defaultConfig() Config {
	return Config{
		APIURL:       "http://localhost:8080/api",
		UploadDomain: "cdn.jaylen.nyc",
		BlobEndpoint: "https://api.tixte.com/v1/upload",
		Timeout:      60 * time.Second,
	}
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	d := defaultConfig()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("token", "")
	v.SetDefault("credential_secret", "")
	v.SetDefault("upload_domain", d.UploadDomain)
	v.SetDefault("blob_endpoint", d.BlobEndpoint)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("debug", false)

	v.SetEnvPrefix("fe2audio")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
