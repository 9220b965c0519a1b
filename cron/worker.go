package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ridelink/config"
	"ridelink/database/repository"
	"ridelink/services/dispatch"
)

const (
	TypeDispatchRun   = "dispatch:run"
	TypeRedispatchAll = "dispatch:sweep"
)

type dispatchPayload struct {
	BookingID string `json:"booking_id"`
}

// AsynqDispatchQueue enqueues dispatch passes onto the shared task queue. It
// is the booking service's dispatch port; the worker below consumes it.
type AsynqDispatchQueue struct {
	client *asynq.Client
}

func NewDispatchQueue() *AsynqDispatchQueue {
	return &AsynqDispatchQueue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		}),
	}
}

func (q *AsynqDispatchQueue) EnqueueDispatch(ctx context.Context, bookingID string, delay time.Duration) error {
	payload, err := json.Marshal(dispatchPayload{BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(3), asynq.Queue("dispatch")}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeDispatchRun, payload), opts...); err != nil {
		return fmt.Errorf("failed to enqueue dispatch for booking %s: %w", bookingID, err)
	}
	return nil
}

func (q *AsynqDispatchQueue) Close() error {
	return q.client.Close()
}

// InitDispatchWorker starts the async worker consuming dispatch tasks and
// schedules the periodic re-dispatch sweep.
func InitDispatchWorker(dispatcher dispatch.DispatchService, bookings repository.BookingRepository, queue *AsynqDispatchQueue) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"dispatch": 2,
				"default":  1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDispatchRun, handleDispatchTask(dispatcher))
	mux.HandleFunc(TypeRedispatchAll, handleSweepTask(bookings, queue))

	go func() {
		zap.L().Info("starting dispatch worker")
		if err := srv.Run(mux); err != nil {
			zap.L().Fatal("dispatch worker failed", zap.Error(err))
		}
	}()

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})
	interval := time.Duration(config.AppConfig.RedispatchDelaySec) * time.Second
	if interval == 0 {
		interval = 90 * time.Second
	}
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", interval), asynq.NewTask(TypeRedispatchAll, nil)); err != nil {
		zap.L().Fatal("failed to register re-dispatch sweep", zap.Error(err))
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			zap.L().Fatal("dispatch scheduler failed", zap.Error(err))
		}
	}()
}

func handleDispatchTask(dispatcher dispatch.DispatchService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p dispatchPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			zap.L().Error("invalid dispatch payload", zap.Error(err))
			return err
		}
		offers, err := dispatcher.Dispatch(ctx, p.BookingID)
		if err != nil {
			// A booking that got assigned or cancelled in the meantime is
			// done, not a retryable failure.
			zap.L().Warn("dispatch pass failed", zap.String("booking_id", p.BookingID), zap.Error(err))
			return nil
		}
		zap.L().Info("dispatch pass complete",
			zap.String("booking_id", p.BookingID),
			zap.Int("offers", len(offers)))
		return nil
	}
}

// handleSweepTask re-enqueues bookings that went a full re-dispatch interval
// without a provider.
func handleSweepTask(bookings repository.BookingRepository, queue *AsynqDispatchQueue) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		interval := time.Duration(config.AppConfig.RedispatchDelaySec) * time.Second
		if interval == 0 {
			interval = 90 * time.Second
		}
		stale, err := bookings.FindStalePending(ctx, time.Now().Add(-interval), 100)
		if err != nil {
			zap.L().Error("re-dispatch sweep query failed", zap.Error(err))
			return err
		}
		for _, b := range stale {
			if err := queue.EnqueueDispatch(ctx, b.ID, 0); err != nil {
				zap.L().Warn("failed to re-enqueue booking", zap.String("booking_id", b.ID), zap.Error(err))
			}
		}
		if len(stale) > 0 {
			zap.L().Info("re-dispatch sweep", zap.Int("requeued", len(stale)))
		}
		return nil
	}
}
