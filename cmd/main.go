package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mqtt_dashboard/internal/broker"
	"mqtt_dashboard/internal/handlers"
	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/repository"
	"mqtt_dashboard/internal/repository/db"
	"mqtt_dashboard/internal/server"
	"mqtt_dashboard/internal/service"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix             = "DASHBOARD"
	defaultRefreshTick    = 1 * time.Second
	shutdownGrace         = 10 * time.Second
	autoConnectMaxTimeout = 30 * time.Second
)

func main() {
	cfgErr := loadConfig()

	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	// open activity DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	transport := broker.NewPaho(broker.Options{
		ConnectTimeout: viper.GetDuration("mqtt.connect_timeout"),
		PublishTimeout: viper.GetDuration("mqtt.publish_timeout"),
		KeepAlive:      viper.GetDuration("mqtt.keepalive"),
	})
	services, err := service.NewService(repository.NewRepository(sqlDB), transport, serviceConfig(), log)
	if err != nil {
		log.Fatalw("failed to init services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log.Named("http")).AllowOrigins(viper.GetStringSlice("ws.allowed_origins"))

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.Run(ctx, refreshTick())

	if viper.GetBool("mqtt.auto_connect") {
		autoConnect(ctx, services, log)
	}

	srv := server.New(viper.GetString("port"), apiHandler.InitRoutes())
	runHTTPServer(srv, log)

	waitForShutdown(cancel, srv, services, log)
}

// loadConfig reads .env (optional), configs/config.yml and DASHBOARD_* overrides.
func loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	setDefaults()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("port", server.DefaultPort)
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.topic", "sensors/#")
	viper.SetDefault("mqtt.connect_timeout", broker.DefaultConnectTimeout)
	viper.SetDefault("mqtt.publish_timeout", broker.DefaultPublishTimeout)
	viper.SetDefault("mqtt.keepalive", broker.DefaultKeepAlive)
	viper.SetDefault("mqtt.auto_connect", false)
	viper.SetDefault("retention.capacity", service.DefaultRetentionCapacity)
	viper.SetDefault("dashboard.refresh_interval", defaultRefreshTick)
	viper.SetDefault("activity.db_path", db.MemoryPath)
	viper.SetDefault("activity.keep", service.DefaultActivityKeep)
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.token_ttl", time.Hour)
}

func serviceConfig() service.Config {
	return service.Config{
		RetentionCapacity: viper.GetInt("retention.capacity"),
		ConnectTimeout:    viper.GetDuration("mqtt.connect_timeout"),
		PublishTimeout:    viper.GetDuration("mqtt.publish_timeout"),
		ActivityKeep:      viper.GetInt("activity.keep"),
		Auth: service.AuthConfig{
			Enabled:    viper.GetBool("auth.enabled"),
			Username:   viper.GetString("auth.username"),
			Password:   viper.GetString("auth.password"),
			SigningKey: viper.GetString("auth.signing_key"),
			TokenTTL:   viper.GetDuration("auth.token_ttl"),
		},
	}
}

func refreshTick() time.Duration {
	if d := viper.GetDuration("dashboard.refresh_interval"); d > 0 {
		return d
	}
	return defaultRefreshTick
}

// openDB initializes the SQLite activity log using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("activity.db_path")
	if dbPath == db.MemoryPath {
		log.Infow("activity log kept in memory", "db_path", dbPath)
	}
	return db.InitDB(dbPath)
}

// autoConnect subscribes with the configured broker settings. Failure is logged, not fatal.
func autoConnect(ctx context.Context, services *service.Service, log *logger.Logger) {
	cctx, cancel := context.WithTimeout(ctx, autoConnectMaxTimeout)
	defer cancel()

	_, err := services.Connect(cctx, service.ConnectParams{
		Host:        viper.GetString("mqtt.host"),
		Port:        viper.GetInt("mqtt.port"),
		TopicFilter: viper.GetString("mqtt.topic"),
		Username:    viper.GetString("mqtt.username"),
		Password:    viper.GetString("mqtt.password"),
	})
	if err != nil {
		log.Warnw("auto_connect_failed", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the stream and the subscription before the refresh loop
	if services.Cancel() {
		services.Wait()
	}
	services.Disconnect()
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
