package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/davakhana/internal/model"
)

const trackingBatchSize = 100

// RunTracking периодически продвигает статусы заказов до отмены контекста.
func (s *Service) RunTracking(ctx context.Context) error {
	if s.trackingInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.trackingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.processTrackingBatch(ctx)
		}
	}
}

// processTrackingBatch переводит заказы processing → shipped по истечении shipAfter
// и shipped → delivered, когда день прибытия прошёл. Срок доставки не пересчитывается.
func (s *Service) processTrackingBatch(ctx context.Context) {
	now := s.now()

	toShip, err := s.repo.ListOrdersToShip(ctx, now.Add(-s.shipAfter), trackingBatchSize)
	if err != nil {
		s.logger.Error("failed to load orders to ship", zap.Error(err))
		return
	}
	if !s.advanceOrders(ctx, toShip, model.OrderStatusShipped, now) {
		return
	}

	toDeliver, err := s.repo.ListOrdersToDeliver(ctx, now.Add(-24*time.Hour), trackingBatchSize)
	if err != nil {
		s.logger.Error("failed to load orders to deliver", zap.Error(err))
		return
	}
	s.advanceOrders(ctx, toDeliver, model.OrderStatusDelivered, now)
}

// advanceOrders переводит заказы в статус next. Возвращает false, если контекст отменён.
func (s *Service) advanceOrders(ctx context.Context, orders []model.Order, next model.OrderStatus, now time.Time) bool {
	for _, o := range orders {
		updated, err := s.repo.UpdateOrderStatus(ctx, o.ID, o.Status, next, now)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.logger.Error("failed to update order status",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
			continue
		}
		if updated {
			s.logger.Info("order status changed",
				zap.String("order_id", o.ID),
				zap.String("from", string(o.Status)),
				zap.String("to", string(next)),
			)
		}
	}
	return true
}
