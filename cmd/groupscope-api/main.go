package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groupscope/dashboard/internal/admin"
	"github.com/groupscope/dashboard/internal/airtable"
	"github.com/groupscope/dashboard/internal/auth"
	"github.com/groupscope/dashboard/internal/config"
	"github.com/groupscope/dashboard/internal/database"
	"github.com/groupscope/dashboard/internal/groups"
	"github.com/groupscope/dashboard/internal/logging"
	"github.com/groupscope/dashboard/internal/profiles"
	"github.com/groupscope/dashboard/internal/results"
	"github.com/groupscope/dashboard/internal/server"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	shutdownTimeout  = 10 * time.Second
	redisPingTimeout = 3 * time.Second
)

var (
	cfgFile string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "groupscope-api",
		Short: "GroupScope dashboard backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newDevTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Profile store driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Profile store DSN")
	cmd.PersistentFlags().String("results-driver", defaults.GetString("results.driver"), "Results store driver (sqlite, postgres)")
	cmd.PersistentFlags().String("results-dsn", defaults.GetString("results.dsn"), "Results store DSN")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("jwt-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address for the group cache (empty disables caching)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "results.driver", "results-driver")
	bindFlag(cmd, "results.dsn", "results-dsn")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.jwt_secret", "jwt-secret")
	bindFlag(cmd, "redis.address", "redis-address")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	profileDB, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer closeDatabase(profileDB, logger)

	resultsDB, err := database.OpenReadOnly(appConfig.ResultsDriver, appConfig.ResultsDSN, logger)
	if err != nil {
		return err
	}
	defer closeDatabase(resultsDB, logger)

	validator, err := newSessionValidator(appConfig, logger)
	if err != nil {
		return err
	}

	profileService, err := profiles.NewService(profiles.ServiceConfig{
		Database:   profileDB,
		Clock:      time.Now,
		IDProvider: profiles.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	userManager, err := admin.NewManager(profileService, logger)
	if err != nil {
		return err
	}

	airtableClient, err := airtable.NewClient(airtable.Config{
		APIKey:    appConfig.AirtableAPIKey,
		BaseID:    appConfig.AirtableBaseID,
		TableName: appConfig.AirtableTableName,
		APIURL:    appConfig.AirtableAPIURL,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	cache, closeCache, err := newGroupCache(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	catalog, err := groups.NewCatalog(groups.CatalogConfig{
		Source:      airtableClient,
		Cache:       cache,
		DefaultView: appConfig.AirtableDefaultView,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	reader, err := results.NewReader(results.ReaderConfig{
		Database:  resultsDB,
		Policy:    results.NewAccessPolicy(appConfig.ResultsHiddenTables),
		SearchCap: appConfig.ResultsSearchCap,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:       validator,
		Profiles:       profileService,
		Users:          userManager,
		Groups:         catalog,
		Results:        reader,
		Views:          airtableClient,
		AllowedOrigins: appConfig.CORSAllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newSessionValidator(appConfig config.AppConfig, logger *zap.Logger) (*auth.SessionValidator, error) {
	validatorConfig := auth.SessionValidatorConfig{
		Issuer:     appConfig.AuthIssuer,
		Audience:   appConfig.AuthAudience,
		CookieName: appConfig.AuthCookieName,
	}
	if appConfig.AuthJWTSecret != "" {
		validatorConfig.SigningSecret = []byte(appConfig.AuthJWTSecret)
	}
	if appConfig.AuthJWKSURL != "" {
		keys, err := auth.NewJWKS(auth.JWKSConfig{URL: appConfig.AuthJWKSURL, Logger: logger})
		if err != nil {
			return nil, err
		}
		validatorConfig.Keys = keys
	}
	return auth.NewSessionValidator(validatorConfig)
}

// newGroupCache connects to Redis when an address is configured; otherwise groups are
// read straight from Airtable on every request.
func newGroupCache(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (groups.Cache, func(), error) {
	if appConfig.RedisAddress == "" {
		logger.Info("group cache disabled")
		return groups.NopCache{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     appConfig.RedisAddress,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("group cache connected", zap.String("address", appConfig.RedisAddress), zap.Duration("ttl", appConfig.GroupsCacheTTL))

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return groups.NewRedisCache(client, appConfig.GroupsCacheTTL), closeFn, nil
}

func closeDatabase(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close database", zap.Error(err))
	}
}
