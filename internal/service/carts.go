package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/cart"
	"github.com/mmeshcher/davakhana/internal/model"
	"github.com/mmeshcher/davakhana/internal/repository"
)

// CartView описывает содержимое корзины вместе с промежуточной суммой.
type CartView struct {
	Items    []model.CartItem `json:"items"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

func viewOf(items []model.CartItem) CartView {
	if items == nil {
		items = []model.CartItem{}
	}
	return CartView{Items: items, Subtotal: cart.Subtotal(items)}
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(_ context.Context, userID string) CartView {
	return viewOf(s.carts.Get(userID).Items())
}

// AddToCart добавляет одобренный препарат в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID, medicineID string, qty int) (CartView, error) {
	if qty <= 0 {
		return CartView{}, fmt.Errorf("%w: %w", ErrInvalidInput, cart.ErrInvalidQuantity)
	}

	m, err := s.repo.GetMedicine(ctx, medicineID)
	if err != nil {
		return CartView{}, err
	}
	if m.ApprovalStatus != model.ApprovalApproved {
		return CartView{}, fmt.Errorf("%w: %s", repository.ErrNotFound, medicineID)
	}

	// в корзине не может оказаться больше, чем есть на складе, с учётом уже добавленного
	c := s.carts.Get(userID)
	if _, err := c.AddWithin(*m, qty, m.Stock); err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			return CartView{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		case errors.Is(err, cart.ErrLimitExceeded):
			return CartView{}, fmt.Errorf("%w: %s", repository.ErrNotEnoughStock, medicineID)
		}
		return CartView{}, err
	}
	return viewOf(c.Items()), nil
}

// RemoveFromCart удаляет позицию из корзины.
func (s *Service) RemoveFromCart(_ context.Context, userID, medicineID string) (CartView, error) {
	c := s.carts.Get(userID)
	if !c.Remove(medicineID) {
		return CartView{}, fmt.Errorf("%w: %s", repository.ErrNotFound, medicineID)
	}
	return viewOf(c.Items()), nil
}

// ClearCart очищает корзину пользователя.
func (s *Service) ClearCart(_ context.Context, userID string) {
	s.carts.Get(userID).Clear()
}
