package main

import (
	"context"
	"net/http"
	"time"

	"github.com/mrogowski01/rentacar/libs/config"
	"github.com/mrogowski01/rentacar/libs/db"
	"github.com/mrogowski01/rentacar/libs/httpx"
	"github.com/mrogowski01/rentacar/libs/kafkax"
	otelx "github.com/mrogowski01/rentacar/libs/otel"
	"github.com/mrogowski01/rentacar/libs/runtime"
	"github.com/mrogowski01/rentacar/services/car-service/internal/directory"
	"github.com/mrogowski01/rentacar/services/car-service/internal/handlers"
	"github.com/mrogowski01/rentacar/services/car-service/internal/outbox"
	"github.com/mrogowski01/rentacar/services/car-service/internal/rental"
	"github.com/mrogowski01/rentacar/services/car-service/internal/storage"
	"github.com/mrogowski01/rentacar/services/car-service/internal/weather"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "car-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, outboxRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	userDirectory, err := directory.NewUserDirectoryProvider(
		logger,
		config.String("USER_SERVICE_URL", "http://user-service:8081"),
		config.String("USER_GRPC_ADDR", ""),
	)
	if err != nil {
		logger.Error("user directory init failed", "err", err)
		panic(err)
	}

	offerService := rental.NewOfferService(repo, repo, repo, logger)
	reservationService := rental.NewReservationService(repo, repo, repo, userDirectory, logger)

	weatherClient := weather.NewClient(weather.Config{
		APIKey:   config.String("WEATHER_API_KEY", ""),
		Location: config.String("WEATHER_LOCATION", "Cracow"),
		Timeout:  5 * time.Second,
	})

	carHandler := handlers.NewCarHandler(repo, logger)
	offerHandler := handlers.NewOfferHandler(offerService, repo, logger)
	reservationHandler := handlers.NewReservationHandler(reservationService, repo, logger)
	weatherHandler := handlers.NewWeatherHandler(weatherClient, repo, reservationHandler, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/cars", carHandler.Collection)
	mux.HandleFunc("/api/cars/user", carHandler.Mine)
	mux.HandleFunc("/api/cars/", carHandler.Item)
	mux.HandleFunc("/api/offers", offerHandler.Collection)
	mux.HandleFunc("/api/offers/adjusted", offerHandler.Adjusted)
	mux.HandleFunc("/api/offers/user", offerHandler.Mine)
	mux.HandleFunc("/api/offers/car/", offerHandler.ByCar)
	mux.HandleFunc("/api/offers/", offerHandler.Item)
	mux.HandleFunc("/api/reservations", reservationHandler.Collection)
	mux.HandleFunc("/api/reservations/user", reservationHandler.Mine)
	mux.HandleFunc("/api/reservations/", reservationHandler.Item)
	mux.HandleFunc("/api/weather", weatherHandler.Forecast)
	mux.HandleFunc("/api/weather/user/reservations-with-forecast", weatherHandler.MineWithForecast)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "car")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
