package config

import (
	"fmt"
	"time"
)

type APIConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (config APIConfig) validate() error {
	if config.Address == "" {
		return fmt.Errorf("missing variable: address")
	}
	return nil
}

func (config APIConfig) bindEnvironmentVariables() error {
	return bindEnvs("api.address", "API_ADDRESS")
}
