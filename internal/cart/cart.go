// Package cart хранит корзины покупателей в памяти процесса.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/davakhana/internal/model"
)

var (
	// ErrInvalidQuantity возвращается при попытке добавить неположительное количество.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrLimitExceeded возвращается, если количество позиции превысило бы допустимый предел.
	ErrLimitExceeded = errors.New("quantity limit exceeded")
	// ErrCheckoutInProgress возвращается, если по корзине уже оформляется заказ.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// Cart содержит позиции корзины в порядке добавления.
type Cart struct {
	mu          sync.Mutex
	items       []model.CartItem
	checkingOut bool
}

// Add добавляет препарат в корзину. Повторное добавление увеличивает количество существующей позиции.
func (c *Cart) Add(m model.Medicine, qty int) (model.CartItem, error) {
	return c.add(m, qty, -1)
}

// AddWithin добавляет препарат, если итоговое количество позиции не превысит limit.
func (c *Cart) AddWithin(m model.Medicine, qty, limit int) (model.CartItem, error) {
	return c.add(m, qty, limit)
}

func (c *Cart) add(m model.Medicine, qty, limit int) (model.CartItem, error) {
	if qty <= 0 {
		return model.CartItem{}, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Medicine.ID == m.ID {
			if limit >= 0 && c.items[i].Quantity+qty > limit {
				return model.CartItem{}, ErrLimitExceeded
			}
			c.items[i].Quantity += qty
			return c.items[i], nil
		}
	}
	if limit >= 0 && qty > limit {
		return model.CartItem{}, ErrLimitExceeded
	}

	item := model.CartItem{Medicine: m, Quantity: qty}
	c.items = append(c.items, item)
	return item, nil
}

// Remove удаляет позицию из корзины и сообщает, была ли она там.
func (c *Cart) Remove(medicineID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Medicine.ID == medicineID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear очищает корзину.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items возвращает копию позиций корзины.
func (c *Cart) Items() []model.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Subtotal возвращает сумму цена × количество по всем позициям.
func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Items())
}

// Subtotal считает сумму позиций.
func Subtotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// beginCheckout помечает корзину как оформляемую и возвращает снимок позиций.
func (c *Cart) beginCheckout() ([]model.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return nil, ErrCheckoutInProgress
	}
	c.checkingOut = true

	out := make([]model.CartItem, len(c.items))
	copy(out, c.items)
	return out, nil
}

// finishCheckout снимает отметку оформления и вычитает из корзины заказанные количества.
// Позиции, добавленные во время оформления, остаются в корзине.
func (c *Cart) finishCheckout(ordered []model.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkingOut = false
	for _, o := range ordered {
		for i := range c.items {
			if c.items[i].Medicine.ID != o.Medicine.ID {
				continue
			}
			c.items[i].Quantity -= o.Quantity
			if c.items[i].Quantity <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
			}
			break
		}
	}
}

// Registry хранит корзины пользователей.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewRegistry создаёт пустой реестр корзин.
func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// Get возвращает корзину пользователя, создавая её при необходимости.
func (r *Registry) Get(userID string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[userID]
	if !ok {
		c = &Cart{}
		r.carts[userID] = c
	}
	return c
}

// Checkout передаёт снимок корзины в fn. Если fn завершилась без ошибки, заказанные позиции
// удаляются из корзины, иначе корзина остаётся нетронутой. Одновременно по одной корзине
// может идти только одно оформление, остальные получают ErrCheckoutInProgress.
func (r *Registry) Checkout(userID string, fn func(items []model.CartItem) error) error {
	c := r.Get(userID)
	items, err := c.beginCheckout()
	if err != nil {
		return err
	}
	var ordered []model.CartItem
	defer func() { c.finishCheckout(ordered) }()

	if err := fn(items); err != nil {
		return err
	}
	ordered = items
	return nil
}
