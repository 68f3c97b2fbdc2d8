package main

import (
	"context"
	"runtime"
	"time"

	registry "github.com/Borislavv/shared-handle/internal/registry"
	"github.com/Borislavv/shared-handle/internal/registry/config"
	"github.com/Borislavv/shared-handle/pkg/liveness"
	"github.com/Borislavv/shared-handle/pkg/shutdown"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
)

// Initializes environment variables from .env files and binds them using
// Viper. This allows overriding any value via environment variables.
func init() {
	// Load .env and .env.local files for configuration overrides.
	if err := godotenv.Overload(".env", ".env.local"); err != nil {
		log.Warn().Msgf("[main] .env files were not loaded: %v", err)
	}

	// Bind all relevant environment variables using Viper.
	viper.AutomaticEnv()
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("APP_DEBUG")
	_ = viper.BindEnv("MEMORY_LIMIT")
	_ = viper.BindEnv("INIT_REGISTRY_LEN_PER_SHARD")
	_ = viper.BindEnv("RATE_LIMIT_PER_SECOND")
	_ = viper.BindEnv("SERVER_NAME")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("SERVER_SHUTDOWN_TIMEOUT")
	_ = viper.BindEnv("SERVER_REQUEST_TIMEOUT")
	_ = viper.BindEnv("IS_PROMETHEUS_METRICS_ENABLED")
	_ = viper.BindEnv("LIVENESS_PROBE_FAILED_TIMEOUT")
}

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU
// parallelism) based on the available CPUs and cgroup/docker CPU quotas.
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg loads the configuration struct from environment variables.
func loadCfg() *config.Config {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Err(err).Msg("[main] failed to unmarshal config from envs")
		panic(err)
	}
	return cfg
}

// Main entrypoint: configures and starts the registry application.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	// Load the application configuration from env vars.
	cfg := loadCfg()

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Second * 10)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(cfg.LivenessProbeTimeout)

	// Initialize and start the registry application.
	if app, err := registry.NewApp(ctx, cfg, probe); err != nil {
		log.Err(err).Msg("[main] failed to init registry app")
	} else {
		// Register app for graceful shutdown.
		gracefulShutdown.Add(1)
		go app.Start(gracefulShutdown)
	}

	// Listen for OS signals or context cancellation and await shutdown.
	if err := gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("[main] failed to gracefully shut down service")
	}
}
