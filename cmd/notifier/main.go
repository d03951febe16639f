// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	awsclients "family-notify/internal/common/aws"
	"family-notify/internal/common/config"
	"family-notify/internal/common/database"
	commonerrors "family-notify/internal/common/errors"
	commonhttp "family-notify/internal/common/http"
	"family-notify/internal/common/logger"
	"family-notify/internal/common/observability"
	"family-notify/internal/models"
	"family-notify/internal/notification/channels"
	"family-notify/internal/notification/dispatch"
	"family-notify/internal/notification/preferences"
	"family-notify/internal/store/deliverylog"
	prefstore "family-notify/internal/store/preferences"
	"family-notify/internal/store/recipients"
	"family-notify/internal/store/tokens"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notifier...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("notifier")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional sink) ---
	var deliveryLog *deliverylog.Indexer
	if cfg.Database.Elasticsearch.Enabled() {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		deliveryLog = deliverylog.New(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch not configured, delivery log disabled")
	}

	// --- Stores ---
	recipientStore := recipients.New(pg.DB, log)
	tokenStore := tokens.New(pg.DB, log)
	prefStore := prefstore.New(pg.DB, log)
	cachedPrefs := prefstore.NewCache(prefStore, rdb.Client, cfg.Notifications.CacheTTL(), log)
	resolver := preferences.NewResolver(cachedPrefs, log)

	// --- Channel senders ---
	var senders []channels.Sender

	whatsAppClient := commonhttp.NewClient(config.GetDuration(cfg.Notifications.WhatsApp.Timeout))
	senders = append(senders, channels.NewWhatsAppSender(cfg.Notifications.WhatsApp, whatsAppClient, log))

	snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.SMS.Region)
	if err != nil {
		zapLog.Fatal("sns client failed", zap.Error(err))
	}
	senders = append(senders, channels.NewSMSSender(cfg.Notifications.SMS, snsClient, log))

	if cfg.Notifications.Email.Enabled {
		sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.Email.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		senders = append(senders, channels.NewEmailSender(cfg.Notifications.Email, sesClient, log))
	}

	if cfg.Notifications.Push.Enabled {
		var fcmClient *messaging.Client
		err = retryWithBackoff(func() error {
			app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Notifications.Push.ProjectID},
				option.WithCredentialsFile(cfg.Notifications.Push.CredentialsFile))
			if err != nil {
				return err
			}
			fcmClient, err = app.Messaging(ctx)
			return err
		}, 5, 2*time.Second, zapLog, "FCM client initialization")

		if err != nil {
			zapLog.Fatal("fcm client failed after retries", zap.Error(err))
		}
		senders = append(senders, channels.NewPushSender(fcmClient, tokenStore, log))
		zapLog.Info("FCM client initialized successfully")
	}

	// --- Dispatcher ---
	priority := make([]models.DeliveryChannel, 0, len(cfg.Notifications.ChannelPriority))
	for _, ch := range cfg.Notifications.ChannelPriority {
		priority = append(priority, models.DeliveryChannel(ch))
	}
	dispatcher := dispatch.NewDispatcher(recipientStore, resolver, senders, log,
		dispatch.WithChannelPriority(priority))

	zapLog.Info("Dispatcher assembled",
		zap.Strings("channelPriority", cfg.Notifications.ChannelPriority),
		zap.Int("senders", len(senders)),
	)

	// --- Dispatch, Health & Metrics Server ---
	go func() {
		http.HandleFunc("/v1/dispatch", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}

			var req struct {
				RecipientID string            `json:"recipientId"`
				Type        string            `json:"type"`
				Data        map[string]string `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}

			started := time.Now()
			result, err := dispatcher.Dispatch(r.Context(), dispatch.Request{
				RecipientID: req.RecipientID,
				Type:        models.NotificationType(req.Type),
				Data:        req.Data,
			})
			if err != nil {
				status := http.StatusInternalServerError
				var stdErr *commonerrors.StandardError
				if errors.As(err, &stdErr) {
					if stdErr.Retryable {
						status = http.StatusServiceUnavailable
					} else {
						status = http.StatusBadRequest
					}
				}
				obs.RecordDispatch(r.Context(), "error")
				http.Error(w, err.Error(), status)
				return
			}

			outcome := "failed"
			switch {
			case result.Success:
				outcome = "delivered"
			case result.Reason != "":
				outcome = "skipped"
			}
			obs.RecordDispatch(r.Context(), outcome)
			obs.RecordDispatchDuration(r.Context(), time.Since(started), outcome)

			if deliveryLog != nil {
				deliveryLog.Index(r.Context(), result)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(result)
		})
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Dispatch/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Dispatch/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping notifier...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = shutdownCtx

	zapLog.Info("Notifier stopped gracefully")
}
