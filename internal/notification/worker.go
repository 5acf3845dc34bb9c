package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"device-allocation-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the part of the store the workers need.
type Subscriptions interface {
	GetMachine(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	SubscriptionsForMachine(ctx context.Context, machineID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool sends back-in-stock notifications for released machines.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	store   Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a pool of size workers reading from a queue of queueSize.
func NewWorkerPool(size, queueSize int, store Subscriptions, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, queueSize),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// SetSender replaces the push transport. Call it before Start.
func (wp *WorkerPool) SetSender(s NotificationSender) {
	wp.sender = s
}

// Start launches the worker goroutines. They exit when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("notification worker started")
	for {
		select {
		case machineID := <-wp.jobs:
			wp.sendNotificationsForMachine(ctx, machineID)
		case <-ctx.Done():
			log.Debug("notification worker stopped")
			return
		}
	}
}

// Dispatch queues machineID without blocking. It reports false when the
// queue is full and the event was dropped.
func (wp *WorkerPool) Dispatch(machineID uuid.UUID) bool {
	select {
	case wp.jobs <- machineID:
		return true
	default:
		wp.log.Warn("notification queue full, dropping event", zap.Stringer("machine_id", machineID))
		return false
	}
}

func (wp *WorkerPool) sendNotificationsForMachine(ctx context.Context, machineID uuid.UUID) {
	subscriptions, err := wp.store.SubscriptionsForMachine(ctx, machineID)
	if err != nil {
		wp.log.Error("fetch subscriptions", zap.Stringer("machine_id", machineID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := machineID.String()
	if machine, err := wp.store.GetMachine(ctx, machineID); err != nil {
		wp.log.Warn("fetch machine", zap.Stringer("machine_id", machineID), zap.Error(err))
	} else {
		label = machine.SerialNumber
	}

	wp.log.Info("sending back-in-stock notifications",
		zap.String("machine", label), zap.Int("subscriptions", len(subscriptions)))

	message := []byte(fmt.Sprintf("Machine %s is back in stock", label))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, message)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
