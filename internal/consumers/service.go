package consumers

import (
	"context"
	"log/slog"

	"slotline/internal/config"
	"slotline/internal/messaging"
	"slotline/internal/models"
)

type ConsumerService struct {
	nats     *messaging.NATSClient
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	return &ConsumerService{
		nats:     natsClient,
		handlers: NewHandlers(),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.SubjectBookingCreated, "notifications", cs.handlers.HandleBookingCreated); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.SubjectBookingStatusChanged, "notifications", cs.handlers.HandleBookingStatusChanged); err != nil {
		return err
	}

	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	return cs.nats.Close()
}
