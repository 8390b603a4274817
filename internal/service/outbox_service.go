package service

import (
	"context"
	"time"

	"metrico/internal/model"
	"metrico/internal/repository/mysql"

	"go.uber.org/zap"
)

// Sender delivers one outbox event to the broker.
type Sender func(ctx context.Context, ob *model.EntityOutbox) error

// OutboxRelayer periodically drains pending entity-created events and hands
// them to the sender. Delivery failures are retried on the next tick.
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
	log       *zap.Logger
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, sender Sender, log *zap.Logger) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
		log:       log,
	}
}

func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.Pending(ctx, r.batchSize)
	if err != nil {
		r.log.Warn("outbox query failed", zap.Error(err))
		return
	}
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			r.log.Warn("outbox delivery failed",
				zap.Uint64("id", ob.ID), zap.String("event", ob.EventType), zap.Error(err))
			_ = r.repo.MarkFailed(ctx, ob.ID)
			continue
		}
		_ = r.repo.MarkSent(ctx, ob.ID)
	}
}

// LogSender is the fallback sender when Kafka is not configured.
func LogSender(log *zap.Logger) Sender {
	return func(ctx context.Context, ob *model.EntityOutbox) error {
		log.Info("outbox event",
			zap.String("event", ob.EventType), zap.Uint64("entity", ob.EntityID))
		return nil
	}
}
