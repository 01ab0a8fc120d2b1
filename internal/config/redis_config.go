package config

// RedisConfig enables relaying lifecycle events to a redis channel when Address is set.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

func (config RedisConfig) Enabled() bool {
	return config.Address != ""
}

func (config RedisConfig) validate() error {
	return nil
}

func (config RedisConfig) bindEnvironmentVariables() error {
	return bindEnvs(
		"redis.address", "REDIS_ADDRESS",
		"redis.password", "REDIS_PASSWORD",
	)
}
