package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mrogowski01/rentacar/libs/config"
	"github.com/mrogowski01/rentacar/libs/db"
	"github.com/mrogowski01/rentacar/libs/httpx"
	"github.com/mrogowski01/rentacar/libs/kafkax"
	otelx "github.com/mrogowski01/rentacar/libs/otel"
	"github.com/mrogowski01/rentacar/libs/runtime"
	"github.com/mrogowski01/rentacar/services/analytics-service/internal/consumer"
	"github.com/mrogowski01/rentacar/services/analytics-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const dayLayout = "2006-01-02"

func main() {
	service := config.String("SERVICE_NAME", "analytics-service")
	port, err := config.Port("PORT", "8086")
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

	inboxRepo := inbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "analytics-service")

	handleReservationEvent := func(ctx context.Context, msg kafka.Message, kind string) error {
		var payload struct {
			ReservationID int64  `json:"reservation_id"`
			OfferID       int64  `json:"offer_id"`
			CarID         int64  `json:"car_id"`
			OwnerID       string `json:"owner_id"`
			RenterID      string `json:"renter_id"`
			DateFrom      string `json:"date_from"`
			DateTo        string `json:"date_to"`
			TotalPrice    int64  `json:"total_price"`
		}

		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid reservation payload", "err", err)
			return nil
		}
		if payload.ReservationID == 0 || payload.CarID == 0 || payload.DateFrom == "" {
			logger.Error("missing reservation fields")
			return nil
		}
		startDay, err := time.Parse(dayLayout, payload.DateFrom)
		if err != nil {
			logger.Error("invalid date_from", "err", err)
			return nil
		}

		meta := kafkax.ExtractEventMeta(msg)

		tx, err := pool.Begin(ctx)
		if err != nil {
			logger.Error("db begin failed", "err", err)
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		tag, err := tx.Exec(ctx, `
			INSERT INTO reservation_events (event_id, event_type, car_id, reservation_id, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_id) DO NOTHING
		`, meta.EventID, meta.EventType, payload.CarID, payload.ReservationID, startDay)
		if err != nil {
			logger.Error("failed to insert reservation event", "err", err)
			return err
		}
		if tag.RowsAffected() == 0 {
			_ = tx.Commit(ctx)
			return nil
		}

		bookedInc := 0
		cancelledInc := 0
		revenueInc := int64(0)
		switch kind {
		case "booked":
			bookedInc = 1
			revenueInc = payload.TotalPrice
		case "cancelled":
			cancelledInc = 1
			revenueInc = -payload.TotalPrice
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_reservation_metrics (car_id, day, booked_count, cancelled_count, revenue)
			VALUES ($1, $2::date, $3, $4, $5)
			ON CONFLICT (car_id, day)
			DO UPDATE SET booked_count = daily_reservation_metrics.booked_count + EXCLUDED.booked_count,
			              cancelled_count = daily_reservation_metrics.cancelled_count + EXCLUDED.cancelled_count,
			              revenue = daily_reservation_metrics.revenue + EXCLUDED.revenue,
			              updated_at = now()
		`, payload.CarID, startDay, bookedInc, cancelledInc, revenueInc); err != nil {
			logger.Error("failed to update daily metrics", "err", err)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			logger.Error("failed to commit reservation metric", "err", err)
			return err
		}

		logger.Info("reservation metric recorded", "reservation_id", payload.ReservationID, "car_id", payload.CarID, "event_type", meta.EventType)
		return nil
	}

	bookedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "rental.reservation.created.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		return handleReservationEvent(ctx, msg, "booked")
	})
	go bookedConsumer.Run(ctx)

	cancelledConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "rental.reservation.cancelled.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		return handleReservationEvent(ctx, msg, "cancelled")
	})
	go cancelledConsumer.Run(ctx)

	handleNotificationResult := func(ctx context.Context, msg kafka.Message, status string) error {
		var payload struct {
			SourceEvent string `json:"source_event"`
			Recipient   string `json:"recipient"`
			SentAt      string `json:"sent_at"`
			FailedAt    string `json:"failed_at"`
		}

		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid notification payload", "err", err)
			return nil
		}
		ts := payload.SentAt
		if status == "failed" {
			ts = payload.FailedAt
		}
		if payload.SourceEvent == "" || payload.Recipient == "" || ts == "" {
			logger.Error("missing notification fields")
			return nil
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			logger.Error("invalid notification timestamp", "err", err)
			return nil
		}

		sentInc := 0
		failedInc := 0
		if status == "failed" {
			failedInc = 1
		} else {
			sentInc = 1
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO daily_notification_metrics (day, source_event, sent_count, failed_count)
			VALUES ($1::date, $2, $3, $4)
			ON CONFLICT (day, source_event)
			DO UPDATE SET sent_count = daily_notification_metrics.sent_count + EXCLUDED.sent_count,
			              failed_count = daily_notification_metrics.failed_count + EXCLUDED.failed_count,
			              updated_at = now()
		`, t.UTC(), payload.SourceEvent, sentInc, failedInc)
		if err != nil {
			logger.Error("failed to update notification metrics", "err", err)
			return err
		}

		logger.Info("notification metric recorded", "source_event", payload.SourceEvent, "status", status)
		return nil
	}

	sentConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "notification.sent.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		return handleNotificationResult(ctx, msg, "sent")
	})
	go sentConsumer.Run(ctx)

	failedConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "notification.failed.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		return handleNotificationResult(ctx, msg, "failed")
	})
	go failedConsumer.Run(ctx)

	authAuditConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "auth.audit.v1",
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			EventType string          `json:"event_type"`
			ActorID   string          `json:"actor_id"`
			Metadata  json.RawMessage `json:"metadata"`
			CreatedAt string          `json:"created_at"`
		}

		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid auth audit payload", "err", err)
			return nil
		}
		if payload.EventType == "" || payload.CreatedAt == "" {
			logger.Error("missing auth audit fields")
			return nil
		}
		if _, err := time.Parse(time.RFC3339, payload.CreatedAt); err != nil {
			logger.Error("invalid auth audit created_at", "err", err)
			return nil
		}

		_, err := pool.Exec(ctx, `
			INSERT INTO security_audit_events (event_type, actor_id, metadata, created_at)
			VALUES ($1, NULLIF($2, ''), $3, $4)
		`, payload.EventType, payload.ActorID, payload.Metadata, payload.CreatedAt)
		if err != nil {
			logger.Error("failed to write security audit event", "err", err)
			return err
		}

		logger.Info("security audit recorded", "event_type", payload.EventType)
		return nil
	})
	go authAuditConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "analytics")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
