package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/davakhana/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется, когда база данных не настроена.
type MemoryRepository struct {
	mu        sync.RWMutex
	medicines map[string]model.Medicine
	orders    map[string]model.Order
	users     map[string]model.User
	emails    map[string]string
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		medicines: make(map[string]model.Medicine),
		orders:    make(map[string]model.Order),
		users:     make(map[string]model.User),
		emails:    make(map[string]string),
	}
}

// Close ничего не делает и нужен для совместимости с другими хранилищами.
func (r *MemoryRepository) Close() error { return nil }

// SeedMedicines добавляет препараты, которых ещё нет в каталоге.
func (r *MemoryRepository) SeedMedicines(_ context.Context, items []model.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range items {
		if _, ok := r.medicines[m.ID]; ok {
			continue
		}
		r.medicines[m.ID] = m
	}
	return nil
}

// ListMedicines возвращает одобренные препараты, подходящие под запрос.
func (r *MemoryRepository) ListMedicines(_ context.Context, query string) ([]model.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Medicine, 0, len(r.medicines))
	for _, m := range r.medicines {
		if m.ApprovalStatus != model.ApprovalApproved || !matchesQuery(m, query) {
			continue
		}
		out = append(out, m)
	}
	sortCatalog(out)
	return out, nil
}

// GetMedicine возвращает препарат по идентификатору.
func (r *MemoryRepository) GetMedicine(_ context.Context, id string) (*model.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.medicines[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// CreateMedicine сохраняет новую позицию каталога.
func (r *MemoryRepository) CreateMedicine(_ context.Context, m model.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.medicines[m.ID]; ok {
		return fmt.Errorf("medicine %s already exists", m.ID)
	}
	r.medicines[m.ID] = m
	return nil
}

// ListPendingMedicines возвращает заявки на модерации, новые первыми.
func (r *MemoryRepository) ListPendingMedicines(_ context.Context) ([]model.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Medicine, 0)
	for _, m := range r.medicines {
		if m.ApprovalStatus == model.ApprovalPending {
			out = append(out, m)
		}
	}
	sortPending(out)
	return out, nil
}

// SetApprovalStatus переводит заявку из pending в указанный статус. Возвращает false, если заявки на модерации нет.
func (r *MemoryRepository) SetApprovalStatus(_ context.Context, id string, status model.ApprovalStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.medicines[id]
	if !ok || m.ApprovalStatus != model.ApprovalPending {
		return false, nil
	}

	m.ApprovalStatus = status
	if status == model.ApprovalApproved {
		t := at
		m.ApprovedAt = &t
	}
	r.medicines[id] = m
	return true, nil
}

// CreateOrder сохраняет заказ и списывает остатки препаратов одной операцией.
func (r *MemoryRepository) CreateOrder(_ context.Context, o model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return ErrOrderExists
	}

	ids, qty := reservations(o.Items)
	for _, id := range ids {
		m, ok := r.medicines[id]
		if !ok || m.ApprovalStatus != model.ApprovalApproved {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if m.Stock < qty[id] {
			return fmt.Errorf("%w: %s", ErrNotEnoughStock, id)
		}
	}

	for _, id := range ids {
		m := r.medicines[id]
		m.Stock -= qty[id]
		r.medicines[id] = m
	}

	o.Items = append([]model.CartItem(nil), o.Items...)
	r.orders[o.ID] = o
	return nil
}

// ListOrders возвращает заказы пользователя, новые первыми. Пустой userID означает все заказы.
func (r *MemoryRepository) ListOrders(_ context.Context, userID string) ([]model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Order, 0)
	for _, o := range r.orders {
		if userID != "" && o.UserID != userID {
			continue
		}
		out = append(out, o)
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *MemoryRepository) GetOrder(_ context.Context, id string) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

// ListOrdersToShip возвращает заказы в обработке, созданные не позже createdBefore, старые первыми.
func (r *MemoryRepository) ListOrdersToShip(_ context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	return r.ordersDue(model.OrderStatusProcessing, func(o model.Order) bool {
		return !o.CreatedAt.After(createdBefore)
	}, limit), nil
}

// ListOrdersToDeliver возвращает отгруженные заказы с днём прибытия не позже arrivedBefore, старые первыми.
func (r *MemoryRepository) ListOrdersToDeliver(_ context.Context, arrivedBefore time.Time, limit int) ([]model.Order, error) {
	return r.ordersDue(model.OrderStatusShipped, func(o model.Order) bool {
		return !o.ArrivalDate.After(arrivedBefore)
	}, limit), nil
}

func (r *MemoryRepository) ordersDue(status model.OrderStatus, due func(model.Order) bool, limit int) []model.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Order, 0)
	for _, o := range r.orders {
		if o.Status == status && due(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UpdateOrderStatus меняет статус заказа, если текущий статус равен from.
func (r *MemoryRepository) UpdateOrderStatus(_ context.Context, id string, from, to model.OrderStatus, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	r.orders[id] = o
	return true, nil
}

// CreateUser сохраняет нового пользователя.
func (r *MemoryRepository) CreateUser(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(u.Email)
	if _, ok := r.emails[email]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, email)
	}
	u.Email = email
	r.users[u.ID] = u
	r.emails[email] = u.ID
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := r.users[id]
	return &u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *MemoryRepository) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// UpdateUserRole меняет роль пользователя.
func (r *MemoryRepository) UpdateUserRole(_ context.Context, id string, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	r.users[id] = u
	return nil
}
