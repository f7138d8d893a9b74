package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/davakhana/internal/delivery"
	"github.com/mmeshcher/davakhana/internal/model"
	"github.com/mmeshcher/davakhana/internal/notify"
	"github.com/mmeshcher/davakhana/internal/repository"
	"github.com/mmeshcher/davakhana/internal/validation"
)

const (
	orderIDPrefix      = "DK-ORD-"
	maxOrderIDAttempts = 10

	hubLat = 26.8143
	hubLng = 80.9168
	// jitterSpan ширина окна случайного смещения координат, по 0.005° в каждую сторону.
	jitterSpan = 0.01
)

// EstimateDelivery рассчитывает стоимость и срок доставки до оформления заказа.
func (s *Service) EstimateDelivery(_ context.Context, city, tier string) (delivery.Quote, error) {
	if strings.TrimSpace(city) == "" {
		return delivery.Quote{}, fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	t, err := delivery.ParseTier(tier)
	if err != nil {
		return delivery.Quote{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.estimator.Estimate(city, t)
}

// CreateOrder оформляет заказ из корзины пользователя. Корзина очищается только после успешной записи заказа.
func (s *Service) CreateOrder(ctx context.Context, userID string, draft model.OrderDraft) (*model.Order, error) {
	draft.Address = strings.TrimSpace(draft.Address)
	draft.City = strings.TrimSpace(draft.City)
	draft.Pincode = strings.TrimSpace(draft.Pincode)

	if draft.Address == "" || draft.City == "" {
		return nil, fmt.Errorf("%w: address and city are required", ErrInvalidInput)
	}
	if draft.Pincode != "" && !validation.IsValidPincode(draft.Pincode) {
		return nil, fmt.Errorf("%w: invalid pincode", ErrInvalidInput)
	}
	tier, err := delivery.ParseTier(string(draft.Tier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var order *model.Order
	err = s.carts.Checkout(userID, func(items []model.CartItem) error {
		if len(items) == 0 {
			return ErrEmptyCart
		}
		if err := s.pause(ctx); err != nil {
			return err
		}

		quote, err := s.estimator.Estimate(draft.City, tier)
		if err != nil {
			return err
		}

		o, err := s.placeOrder(ctx, userID, draft, items, quote)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Bool("local", order.IsLocal),
	)
	s.notifyOps(ctx, order)
	return order, nil
}

func (s *Service) placeOrder(ctx context.Context, userID string, draft model.OrderDraft, items []model.CartItem, quote delivery.Quote) (*model.Order, error) {
	subtotal := viewOf(items).Subtotal
	now := s.now()

	o := model.Order{
		UserID:           userID,
		Items:            items,
		Subtotal:         subtotal,
		DeliveryFee:      quote.Fee,
		Total:            subtotal.Add(quote.Fee),
		Status:           model.OrderStatusProcessing,
		Tier:             quote.Tier,
		Address:          draft.Address,
		City:             draft.City,
		Pincode:          draft.Pincode,
		DistanceKm:       quote.DistanceKm,
		IsLocal:          quote.Local,
		EstimatedArrival: quote.ETA,
		ArrivalDate:      quote.ArrivalDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if o.IsLocal {
		o.Status = model.OrderStatusShipped
		o.DeliveryCoords = &model.Coordinates{
			Lat: hubLat + (s.float64fn()-0.5)*jitterSpan,
			Lng: hubLng + (s.float64fn()-0.5)*jitterSpan,
		}
	}

	var err error
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		o.ID = s.newOrderID()
		err = s.repo.CreateOrder(ctx, o)
		if !errors.Is(err, repository.ErrOrderExists) {
			break
		}
		s.logger.Warn("order id collision, retrying", zap.String("order_id", o.ID))
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Service) newOrderID() string {
	return fmt.Sprintf("%s%d", orderIDPrefix, 10000+s.intN(90000))
}

// notifyOps отправляет уведомление о новом заказе. Ошибка доставки только логируется.
// Отправка не зависит от отмены запроса и ограничена notifyTimeout.
func (s *Service) notifyOps(ctx context.Context, o *model.Order) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	msg := fmt.Sprintf("New Order %s received. Total: ₹%s", o.ID, o.Total.StringFixed(2))
	err := s.notifier.Send(ctx, s.opsPhone, msg)

	var rl *notify.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter <= s.maxNotifyWait {
		if err = sleep(ctx, rl.RetryAfter); err == nil {
			err = s.notifier.Send(ctx, s.opsPhone, msg)
		}
	}
	if err != nil {
		s.logger.Error("failed to send order notification",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// FetchOrders возвращает заказы пользователя, новые первыми. Администратор видит все заказы.
func (s *Service) FetchOrders(ctx context.Context, userID string) ([]model.Order, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.pause(ctx); err != nil {
		return nil, err
	}

	owner := u.ID
	if u.Role == model.RoleAdmin {
		owner = ""
	}
	return s.repo.ListOrders(ctx, owner)
}

// GetOrder возвращает заказ пользователя. Чужой заказ доступен только администратору.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != u.ID && u.Role != model.RoleAdmin {
		return nil, repository.ErrNotFound
	}
	return o, nil
}
