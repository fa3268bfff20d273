package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"irrad-data/internal/blob"
	"irrad-data/internal/common/database"
	"irrad-data/internal/common/logger"
	commonmqtt "irrad-data/internal/common/mqtt"
	commonredis "irrad-data/internal/common/redis"
	"irrad-data/internal/config"
	httpapi "irrad-data/internal/http"
	"irrad-data/internal/infoream"
	"irrad-data/internal/mqtt"
	"irrad-data/internal/notify"
	"irrad-data/internal/repository"
	"irrad-data/internal/service"
	"irrad-data/internal/store"
	"irrad-data/internal/worker"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "irrad-data")
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the inforEAM read cache, the ID allocation lock and the
	// notification stream; without it everything runs on the in-process KV.
	var (
		redisClient *redis.Client
		kv          store.KV
	)
	redisClient = commonredis.NewRedisClient(&cfg.Redis)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, using in-memory KV", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
		kv = store.NewMemoryKV()
	} else {
		kv = store.NewRedisKV(redisClient)
	}

	var db *sql.DB
	repos := repository.NewMemoryRepos()
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			repos = repository.NewPostgresRepos(db)
			log.Info("DB enabled for irrad-data", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.Enabled && redisClient != nil {
		notifier = notify.NewStreamNotifier(redisClient, cfg.Notify.Stream, cfg.Notify.MaxLen, cfg.Notify.From, log)
	}

	attachments, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		log.Warn("Attachment store unavailable, attachments disabled", zap.String("driver", cfg.Blob.Driver), zap.Error(err))
		attachments = nil
	}

	svc := service.New(&service.Deps{
		Repos:    repos,
		InforEAM: infoream.New(cfg.InforEAM, kv, log),
		Notifier: notifier,
		Blob:     attachments,
		Locker:   store.NewLocker(kv, 30*time.Second),
		Logger:   log,
	})

	// SEC readings from the beam monitor
	var mqttClient *commonmqtt.Client
	if cfg.MQTT.Enabled {
		mqttCfg := cfg.MQTT.MQTTConfig
		mqttCfg.ClientID = mqttCfg.ClientID + "-" + uuid.NewString()[:8]
		if c, err := commonmqtt.NewClient(&mqttCfg, log); err == nil {
			broker := mqtt.NewSecBroker(repos.Sec, log)
			if err := c.Subscribe(cfg.MQTT.Topic, broker.HandleMessage); err != nil {
				log.Error("Failed to subscribe to SEC topic", zap.String("topic", cfg.MQTT.Topic), zap.Error(err))
			} else {
				log.Info("Subscribed to SEC readings", zap.String("topic", cfg.MQTT.Topic))
			}
			mqttClient = c
		} else {
			log.Warn("MQTT enabled but connection failed, SEC ingest disabled", zap.Error(err))
		}
	}

	if cfg.SecRefreshInterval > 0 {
		go func() {
			if err := worker.NewSecRefresher(svc.Irradiations, cfg.SecRefreshInterval, log).Run(ctx); err != nil {
				log.Error("SEC refresh stopped", zap.Error(err))
			}
		}()
	}

	router := httpapi.NewRouter(log)
	router.RegisterSystemRoutes()
	router.RegisterAPIRoutes(svc)
	handler := httpapi.NewIdentify(svc.Users, cfg.DevUser, log).Wrap(router)
	if cfg.DevUser.Enabled {
		log.Warn("Development user fallback enabled", zap.String("email", cfg.DevUser.Email))
	}

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if mqttClient != nil {
		_ = mqttClient.Unsubscribe(cfg.MQTT.Topic)
		mqttClient.Disconnect()
	}
	if db != nil {
		_ = db.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
