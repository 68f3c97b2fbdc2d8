package config

import (
	libconfig "github.com/Borislavv/shared-handle/pkg/config"
	fasthttpconfig "github.com/Borislavv/shared-handle/pkg/server/config"
)

type Config struct {
	fasthttpconfig.HttpServer `mapstructure:",squash"`
	libconfig.Config          `mapstructure:",squash"`
}
