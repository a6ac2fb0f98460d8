package main

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/writtenwork/internal/blogservice"
	"github.com/sushihentaime/writtenwork/internal/common"
	"github.com/sushihentaime/writtenwork/internal/mailservice"
	"github.com/sushihentaime/writtenwork/internal/socialservice"
	"github.com/sushihentaime/writtenwork/internal/storageservice"
	"github.com/sushihentaime/writtenwork/internal/userservice"
)

type application struct {
	config         *Config
	logger         *slog.Logger
	userService    *userservice.UserService
	blogService    *blogservice.BlogService
	socialService  *socialservice.SocialService
	storageService *storageservice.StorageService
	mailService    *mailservice.MailService
	broker         *common.MessageBroker
	pages          common.PageCache
	limiters       *common.Cache
	templates      map[string]*template.Template
	metrics        *metrics
}

func main() {
	// Initialize the logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load the configuration
	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the database and bring the schema up to date
	dsn := common.DSN(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name)
	db, err := common.NewDB(dsn, 25, 25, 15*time.Minute)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	m, err := common.MigrateUp(cfg.MigrationsPath, dsn)
	if err != nil {
		logger.Error("failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	m.Close()

	// Initialize the message broker
	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupAuthExchange(broker)
	if err != nil {
		logger.Error("failed to setup the auth exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pages, err := newPageCache(cfg)
	if err != nil {
		logger.Error("failed to initialize the page cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := storageservice.NewStorageService(ctx, storageservice.StorageConfig{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		logger.Error("failed to initialize object storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = storage.EnsureBuckets(ctx)
	if err != nil {
		logger.Error("failed to create storage buckets", slog.String("error", err.Error()))
		os.Exit(1)
	}

	templates, err := newTemplateCache()
	if err != nil {
		logger.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tel, err := newTelemetry(cfg, os.Stdout)
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("failed to flush telemetry", slog.String("error", err.Error()))
		}
	}()

	metrics, err := newMetrics(tel.meterProvider)
	if err != nil {
		logger.Error("failed to register metrics", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the services
	app := &application{
		config:         cfg,
		logger:         logger,
		userService:    userservice.NewUserService(db, broker, newOAuthProvider(cfg)),
		blogService:    blogservice.NewBlogService(db),
		socialService:  socialservice.NewSocialService(db, tel.tracerProvider),
		storageService: storage,
		mailService:    mailservice.NewMailService(broker, cfg.Mail.Host, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.Sender, cfg.Mail.Port, cfg.SiteURL, logger),
		broker:         broker,
		pages:          pages,
		limiters:       common.NewCache(10*time.Minute, 15*time.Minute),
		templates:      templates,
		metrics:        metrics,
	}

	purged, err := app.userService.PurgeExpiredSessions(ctx)
	if err != nil {
		logger.Error("failed to purge expired sessions", slog.String("error", err.Error()))
	} else {
		logger.Info("purged expired sessions", slog.Int64("count", purged))
	}

	// Initialize the consumer
	err = app.mailService.SendOTPEmail()
	if err != nil {
		logger.Error("failed to start the otp mail consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.mailService.Close()

	// Start the HTTP server
	err = app.serve()
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newPageCache(cfg *Config) (common.PageCache, error) {
	switch cfg.CacheBackend {
	case "redis":
		return common.NewRedisCache(cfg.RedisURL)
	default:
		return common.NewCache(time.Minute, 5*time.Minute), nil
	}
}

// newOAuthProvider returns nil when no client is configured, which disables the oauth routes.
func newOAuthProvider(cfg *Config) *userservice.OAuthProvider {
	if cfg.OAuth.ClientID == "" {
		return nil
	}

	return userservice.NewOAuthProvider(userservice.OAuthConfig{
		Name:         cfg.OAuth.Provider,
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		UserInfoURL:  cfg.OAuth.UserInfoURL,
		RedirectURL:  cfg.SiteURL + "/auth/callback",
		Scopes:       cfg.oauthScopes(),
	}, []byte(cfg.SessionSecret))
}
