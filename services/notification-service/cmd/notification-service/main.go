package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mrogowski01/rentacar/libs/config"
	"github.com/mrogowski01/rentacar/libs/db"
	"github.com/mrogowski01/rentacar/libs/httpx"
	"github.com/mrogowski01/rentacar/libs/kafkax"
	otelx "github.com/mrogowski01/rentacar/libs/otel"
	"github.com/mrogowski01/rentacar/libs/runtime"
	"github.com/mrogowski01/rentacar/services/notification-service/internal/consumer"
	"github.com/mrogowski01/rentacar/services/notification-service/internal/email"
	"github.com/mrogowski01/rentacar/services/notification-service/internal/inbox"
	"github.com/mrogowski01/rentacar/services/notification-service/internal/outbox"
	"github.com/mrogowski01/rentacar/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	topicReservationCreated   = "rental.reservation.created.v1"
	topicReservationUpdated   = "rental.reservation.updated.v1"
	topicReservationCancelled = "rental.reservation.cancelled.v1"
	topicUserCreated          = "auth.user.created.v1"
)

func writeOutboxResult(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, eventType string, aggregateID string, fields map[string]any) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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
	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@rentacar.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	failSuffix := config.String("NOTIFICATION_FAIL_SUFFIX", "")

	deliver := func(ctx context.Context, eventType string, aggregateID string, mails []email.Mail) error {
		for _, m := range mails {
			if strings.TrimSpace(m.To) == "" {
				continue
			}

			status := storage.StatusSent
			failureReason := ""
			if failSuffix != "" && strings.HasSuffix(m.To, failSuffix) {
				status = storage.StatusFailed
				failureReason = "simulated failure"
			} else if err := emailSender.Send(m.To, m.Subject, m.Body); err != nil {
				status = storage.StatusFailed
				failureReason = err.Error()
				logger.Error("email send failed", "err", err, "recipient", m.To)
			}

			if err := notificationsRepo.Insert(ctx, storage.Notification{
				EventType: eventType,
				Aggregate: aggregateID,
				Recipient: m.To,
				Subject:   m.Subject,
				Body:      m.Body,
				Status:    status,
			}); err != nil {
				logger.Error("failed to persist notification", "err", err)
				return err
			}

			resultFields := map[string]any{
				"source_event": eventType,
				"recipient":    m.To,
				"subject":      m.Subject,
			}
			resultType := "notification.sent.v1"
			if status == storage.StatusFailed {
				resultType = "notification.failed.v1"
				resultFields["error_reason"] = failureReason
				resultFields["failed_at"] = time.Now().UTC().Format(time.RFC3339)
			} else {
				resultFields["sent_at"] = time.Now().UTC().Format(time.RFC3339)
			}
			if err := writeOutboxResult(ctx, pool, outboxRepo, resultType, aggregateID, resultFields); err != nil {
				logger.Error("failed to enqueue notification result", "err", err, "event_type", resultType)
				return err
			}

			logger.Info("notification processed", "source_event", eventType, "recipient", m.To, "status", status)
		}
		return nil
	}

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics: []string{
			topicReservationCreated,
			topicReservationUpdated,
			topicReservationCancelled,
			topicUserCreated,
		},
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		switch msg.Topic {
		case topicUserCreated:
			var evt email.UserCreatedEvent
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				logger.Error("invalid user payload", "err", err)
				return nil
			}
			if evt.Email == "" {
				logger.Error("user event without email", "user_id", evt.UserID)
				return nil
			}
			return deliver(ctx, msg.Topic, evt.UserID, []email.Mail{email.WelcomeMail(evt)})

		case topicReservationCreated, topicReservationUpdated, topicReservationCancelled:
			var evt email.ReservationEvent
			if err := json.Unmarshal(msg.Value, &evt); err != nil {
				logger.Error("invalid reservation payload", "err", err)
				return nil
			}
			if evt.RenterEmail == "" {
				logger.Error("reservation event without renter email", "reservation_id", evt.ReservationID)
				return nil
			}

			var mails []email.Mail
			switch msg.Topic {
			case topicReservationCreated:
				mails = email.ReservationCreatedMails(evt)
			case topicReservationUpdated:
				mails = email.ReservationUpdatedMails(evt)
			case topicReservationCancelled:
				mails = email.ReservationCancelledMails(evt)
			}
			return deliver(ctx, msg.Topic, strconv.FormatInt(evt.ReservationID, 10), mails)

		default:
			logger.Error("unexpected topic", "topic", msg.Topic)
			return nil
		}
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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
