// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"menuapp-notifier/internal/analytics"
	"menuapp-notifier/internal/common/config"
	"menuapp-notifier/internal/common/database"
	"menuapp-notifier/internal/common/errors"
	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/common/observability"
	"menuapp-notifier/internal/listener"
	"menuapp-notifier/internal/models"
	"menuapp-notifier/internal/orders"
	"menuapp-notifier/internal/relay"
	"menuapp-notifier/internal/report"
	"menuapp-notifier/internal/settings"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting notifier",
		zap.String("environment", cfg.App.Environment),
		zap.String("listenerTransport", cfg.Listener.Transport),
		zap.String("relayTransport", cfg.Relay.Transport),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Redis (settings documents, and the order feed on the redis transport) ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis initialization")
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}
	defer redisClient.Close()

	settingsStore := settings.NewRedisStore(redisClient)

	// --- Order feed transport ---
	var stream orders.Stream
	switch cfg.Listener.Transport {
	case "postgres":
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Postgres initialization")
		if err != nil {
			zapLog.Fatal("postgres unavailable", zap.Error(err))
		}
		defer pg.Close()

		stream = orders.NewPostgresStream(pg.GetDB(), time.Duration(cfg.Listener.PollInterval)*time.Second, log)
	default:
		stream = orders.NewRedisStream(redisClient, log)
	}

	// --- Elasticsearch (prebuilt analytics snapshots for reports) ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 10, 2*time.Second, zapLog, "Elasticsearch initialization")
	if err != nil {
		zapLog.Fatal("elasticsearch unavailable", zap.Error(err))
	}
	analyticsSource := analytics.NewElasticsearchSource(esClient, cfg.Database.Elasticsearch.Index)

	// --- Outbound dispatch ---
	var dispatcher relay.Dispatcher
	if cfg.Relay.Transport == "ses" {
		sesDispatcher, err := relay.NewSESDispatcher(ctx, cfg.Relay.SES.Region, cfg.Relay.SES.FromEmail, log)
		if err != nil {
			zapLog.Fatal("ses dispatcher init failed", zap.Error(err))
		}
		dispatcher = sesDispatcher
	} else {
		dispatcher = relay.NewClient(cfg.Relay.Endpoint, time.Duration(cfg.Relay.Timeout)*time.Second, log)
	}

	reportService := report.NewService(settingsStore, analyticsSource, dispatcher, log, report.Options{
		DefaultStoreName: cfg.Report.DefaultStoreName,
		TopItemsLimit:    cfg.Report.TopItemsLimit,
	})

	orderListener := listener.New(stream, settingsStore, dispatcher, log, listener.Options{
		FreshnessWindow: time.Duration(cfg.Listener.FreshnessWindow) * time.Second,
		DispatchTimeout: time.Duration(cfg.Listener.DispatchTimeout) * time.Second,
	})

	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()

	for _, raw := range cfg.Listener.Scopes {
		scope, err := parseScope(raw)
		if err != nil {
			zapLog.Warn("skipping malformed scope", zap.String("scope", raw), zap.Error(err))
			continue
		}
		if err := orderListener.Start(listenCtx, scope); err != nil {
			zapLog.Error("subscription failed", zap.String("scope", raw), zap.Error(err))
		}
	}

	// --- HTTP surface: report trigger, metrics, pprof ---
	http.HandleFunc("/v1/report/send", reportHandler(reportService, obs, zapLog))
	if cfg.Metrics.Enabled {
		http.Handle("/metrics", promhttp.Handler())
	}
	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil && err != http.ErrServerClosed {
			zapLog.Error("http server stopped", zap.Error(err))
		}
	}()
	zapLog.Info("http server listening", zap.String("address", cfg.Metrics.Address))

	// --- Wait for shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	zapLog.Info("shutting down", zap.String("signal", sig.String()))
	cancelListen()
	orderListener.StopAll()
	zapLog.Info("notifier stopped")
}

// reportHandler exposes the user-initiated report send. The ordering app's
// backend calls this when the merchant taps "email me this report".
func reportHandler(svc *report.Service, obs *observability.Observability, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		scope := models.Scope{
			MerchantID: r.URL.Query().Get("merchant"),
			BranchID:   r.URL.Query().Get("branch"),
		}
		if scope.MerchantID == "" || scope.BranchID == "" {
			http.Error(w, "merchant and branch query params are required", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		start := time.Now()
		out, err := svc.Execute(r.Context(), scope)
		obs.RecordDispatchDuration(r.Context(), time.Since(start), "report")
		if err != nil {
			obs.RecordDispatch(r.Context(), "report", "error")
			stdErr := errors.Normalize(err)
			status := http.StatusBadGateway
			if stdErr.Code == errors.ErrCodeNotConfigured {
				status = http.StatusConflict
			}
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"code":    stdErr.Code,
				"error":   stdErr.Message,
			})
			return
		}

		if !out.Result.Success {
			obs.RecordDispatch(r.Context(), "report", "failure")
			w.WriteHeader(http.StatusBadGateway)
		} else {
			obs.RecordDispatch(r.Context(), "report", "success")
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func parseScope(raw string) (models.Scope, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return models.Scope{}, fmt.Errorf("expected merchantId:branchId, got %q", raw)
	}
	return models.Scope{MerchantID: parts[0], BranchID: parts[1]}, nil
}
