package config

import (
	"fmt"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type DBConfig struct {
	Driver           string `mapstructure:"driver"`
	ConnectionString string `mapstructure:"connection_string"`
}

func (config DBConfig) validate() error {
	if config.ConnectionString == "" {
		return fmt.Errorf("missing variable: db connection string")
	}
	if config.Driver != DriverSqlite && config.Driver != DriverPostgres {
		return fmt.Errorf("unsupported db driver %q", config.Driver)
	}
	return nil
}

func (config DBConfig) bindEnvironmentVariables() error {
	return bindEnvs(
		"db.driver", "DB_DRIVER",
		"db.connection_string", "DB_CONNECTION_STRING",
	)
}
