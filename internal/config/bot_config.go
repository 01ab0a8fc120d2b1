package config

import "fmt"

type BotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

func (config BotConfig) validate() error {
	if config.Enabled && config.Token == "" {
		return fmt.Errorf("missing required variables: token")
	}
	return nil
}

func (config BotConfig) bindEnvironmentVariables() error {
	return bindEnvs("bot.token", "TG_TOKEN")
}
