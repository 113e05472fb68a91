package main

import (
	"context"
	"time"

	"busline/internal/reservations/events"
	"busline/internal/reservations/handler"
	"busline/internal/reservations/payment"
	"busline/internal/reservations/repository"
	"busline/internal/reservations/service"
	"busline/internal/reservations/validator"
	"busline/pkg/app"
	"busline/pkg/config"
	"busline/pkg/kafka"
	kafka_config "busline/pkg/kafka/config"
	kafka_middleware "busline/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Reservations service")
	cfg.SetMongo()
	cfg.SetCollaborators()

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(cfg.Client.GracefulShutdown)

	reservationHandler := initServices(cfg, serverApp)
	serverApp.SetApp(reservationHandler)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) *handler.ReservationHandler {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	seatRepo := repository.NewMongoSeatRepository(cfg)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	ensureIndexes(cfg, seatRepo, bookingRepo)

	holdService := service.NewHoldService(seatRepo, reservationValidator, cfg)
	bookingService := service.NewBookingService(
		seatRepo,
		bookingRepo,
		reservationValidator,
		newAuthorizer(cfg),
		newPublisher(cfg, serverApp),
		cfg,
	)

	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)
	return handler.NewReservationHandler(holdService, bookingService, cfg.Log)
}

func ensureIndexes(cfg *config.Config, seatRepo repository.SeatRepository, bookingRepo repository.BookingRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := seatRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create seat indexes", "error", err)
	}
	if err := bookingRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to create booking indexes", "error", err)
	}
}

func newAuthorizer(cfg *config.Config) payment.Authorizer {
	if cfg.PaymentGatewayURL == "" {
		cfg.Log.Warn("No payment gateway configured, authorizing all charges locally")
		return payment.AutoApproveAuthorizer{}
	}
	return payment.NewHTTPAuthorizer(cfg.PaymentGatewayURL, cfg.Log)
}

func newPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 || cfg.BookingEventsTopic == "" {
		cfg.Log.Info("Kafka publishing disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg := kafka_config.Load()
	kafkaCfg.Brokers = cfg.KafkaBrokers

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware())
	}
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka publishing enabled", "topic", cfg.BookingEventsTopic, "brokers", cfg.KafkaBrokers)
	return events.NewKafkaPublisher(producer)
}
