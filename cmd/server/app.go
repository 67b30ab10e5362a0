package main

import (
	"context"
	"fmt"
	"time"

	"resq/internal/config"
	handlers "resq/internal/handlers/shared"
	"resq/internal/models"
	"resq/internal/repositories/backend"
	"resq/internal/repositories/interfaces"
	"resq/internal/services"
	"resq/internal/utils"
	backendclient "resq/pkg/backend"
	"resq/pkg/cache"
	"resq/pkg/location"
	"resq/pkg/logger"
	"resq/pkg/maps"
	"resq/pkg/sms"
	"resq/pkg/storage"
	"resq/pkg/websocket"
)

// app holds every long-lived component of a running client.
type app struct {
	config   *config.Config
	log      *logger.Logger
	client   *backendclient.Client
	cache    cache.Cache
	repo     interfaces.CaseRepository
	tracker  *location.Tracker
	cases    services.ActiveCaseService
	sos      services.SOSService
	fallback services.FallbackService
	media    services.MediaService
	hub      *websocket.Hub
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
		Caller:     cfg.Logging.Caller,
		Colors:     cfg.Logging.Colors,
		AppName:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{config: cfg, log: log}

	a.client = backendclient.NewClient(&backendclient.Config{
		URL:               cfg.Backend.URL,
		AnonKey:           cfg.Backend.AnonKey,
		JWTSecret:         cfg.Backend.JWTSecret,
		RealtimeURL:       cfg.Backend.RealtimeURL,
		Timeout:           cfg.Backend.RequestTimeout,
		HeartbeatInterval: cfg.Backend.HeartbeatInterval,
		ReconnectMin:      cfg.Backend.ReconnectMin,
		ReconnectMax:      cfg.Backend.ReconnectMax,
	}, log)
	if cfg.Backend.AccessToken != "" {
		a.client.SetSession(cfg.Backend.AccessToken, cfg.Backend.RefreshToken)
	}

	a.cache = newCache(cfg, log)

	provider, err := newStorageProvider(ctx, cfg, a.client)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Provider != "" && cfg.Storage.Provider != "backend" {
		a.client.WithObjectStore(provider)
	}

	a.repo = backend.NewCaseRepository(a.client, a.cache, backend.Options{
		MediaBucket:       cfg.Backend.MediaBucket,
		NotificationLimit: cfg.Case.NotificationLimit,
		CacheTTL:          cfg.Case.LookupCacheTTL,
	}, log)

	a.tracker = location.NewTracker()
	if cfg.Location.Latitude != 0 || cfg.Location.Longitude != 0 {
		a.tracker.Update(models.Location{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Accuracy:  cfg.Location.Accuracy,
			Timestamp: time.Now(),
		})
	}

	geocoder, err := newGeocoder(cfg)
	if err != nil {
		log.WithError(err).Warn("Reverse geocoding disabled")
		geocoder = maps.Noop{}
	}
	resolver := maps.NewResolver(geocoder, cfg.Case.GeocodeTimeout, log)

	a.hub = websocket.NewHub(log)
	a.cases = services.NewActiveCaseService(a.repo, a.client, cfg.Case, log)
	a.sos = services.NewSOSService(a.cases, a.repo, a.tracker, resolver, cfg.Case, services.Events{
		OnError: func(err error) {
			a.hub.Broadcast(utils.MessageTypeSOSError, map[string]string{"error": err.Error()})
		},
		OnNavigate: func(reportID string) {
			a.hub.Broadcast(utils.MessageTypeNavigate, map[string]string{"report_id": reportID})
		},
	}, log)

	smsProvider, err := newSMSProvider(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Offline SOS disabled")
	}
	if smsProvider != nil {
		a.fallback = services.NewFallbackService(smsProvider, a.repo, a.tracker, cfg.SMS.HotlineNumbers, log)
	}

	a.media = services.NewMediaService(provider, a.repo, log)

	a.cases.Subscribe(func(state models.CaseState) {
		a.hub.Broadcast(utils.MessageTypeCaseState, state)
	})
	a.sos.Subscribe(func(state models.SOSState) {
		a.hub.Broadcast(utils.MessageTypeSOSState, state)
	})
	a.hub.SetSnapshot(func() []websocket.Message {
		return []websocket.Message{
			websocket.NewMessage(utils.MessageTypeCaseState, a.cases.State()),
			websocket.NewMessage(utils.MessageTypeSOSState, a.sos.State()),
		}
	})

	return a, nil
}

func (a *app) handlers() (*handlers.CaseHandler, *handlers.SOSHandler, *handlers.LocationHandler) {
	return handlers.NewCaseHandler(a.cases, a.media),
		handlers.NewSOSHandler(a.sos, a.fallback),
		handlers.NewLocationHandler(a.tracker)
}

func (a *app) close() {
	a.sos.Close()
	a.cases.Close()
	if err := a.cache.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close cache")
	}
}

func newCache(cfg *config.Config, log *logger.Logger) cache.Cache {
	memory := cache.NewMemoryCache(cfg.Case.LookupCacheTTL, 2*cfg.Case.LookupCacheTTL)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		})
		if err == nil {
			return cache.NewTieredCache(memory, redisCache, cfg.Case.LookupCacheTTL)
		}
		log.WithError(err).Warn("Redis unavailable, caching lookups in memory")
	}
	return memory
}

func newStorageProvider(ctx context.Context, cfg *config.Config, client *backendclient.Client) (storage.StorageProvider, error) {
	switch cfg.Storage.Provider {
	case "", "backend":
		return storage.NewBackendStorage(client, cfg.Backend.MediaBucket), nil
	case "local":
		return storage.NewLocalStorage(cfg.Storage.Local.BasePath, cfg.Storage.Local.BaseURL)
	case "aws":
		return storage.NewAWSS3Storage(ctx, cfg.Storage.AWS.Region, cfg.Storage.AWS.Bucket, cfg.Storage.AWS.CDNDomain)
	case "gcp":
		return storage.NewGCPStorage(ctx, cfg.Storage.GCP.Bucket, cfg.Storage.GCP.CredentialsFile, cfg.Storage.GCP.CDNDomain)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// newSMSProvider returns nil without error when no credentials are set.
func newSMSProvider(ctx context.Context, cfg *config.Config) (sms.SMSProvider, error) {
	switch cfg.SMS.Provider {
	case "twilio":
		if cfg.SMS.Twilio.AccountSID == "" {
			return nil, nil
		}
		return sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber), nil
	case "aws":
		provider, err := sms.NewAWSSNSProvider(ctx, cfg.SMS.AWS.Region)
		if err != nil {
			return nil, err
		}
		return provider.WithSenderID(cfg.SMS.AWS.SenderID), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMS.Provider)
	}
}

func newGeocoder(cfg *config.Config) (maps.ReverseGeocoder, error) {
	switch cfg.Maps.Provider {
	case "google":
		if cfg.Maps.GoogleMaps.APIKey == "" {
			return maps.Noop{}, nil
		}
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
		if err != nil {
			return nil, err
		}
		return provider.WithLanguage(cfg.Maps.Language), nil
	case "mapbox":
		if cfg.Maps.Mapbox.AccessToken == "" {
			return maps.Noop{}, nil
		}
		return maps.NewMapboxProvider(cfg.Maps.Mapbox.AccessToken).WithLanguage(cfg.Maps.Language), nil
	default:
		return maps.Noop{}, nil
	}
}
