package config

import "time"

// Config is the library-level configuration of the registry service:
// everything below the HTTP surface.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	AppDebug bool   `mapstructure:"APP_DEBUG"`

	// MemoryLimit caps the arena backing all managed values, in bytes.
	// Zero means unbounded (accounting only).
	MemoryLimit int64 `mapstructure:"MEMORY_LIMIT"`

	// InitRegistryLengthPerShard presizes each registry shard's map.
	InitRegistryLengthPerShard int `mapstructure:"INIT_REGISTRY_LEN_PER_SHARD"`

	// RateLimitPerSecond caps request throughput on the API surface.
	RateLimitPerSecond int `mapstructure:"RATE_LIMIT_PER_SECOND"`

	LivenessProbeTimeout time.Duration `mapstructure:"LIVENESS_PROBE_FAILED_TIMEOUT"`
}

func (c *Config) IsDebugOn() bool {
	return c.AppDebug
}

func (c *Config) IsProdEnv() bool {
	return c.AppEnv == "prod"
}
