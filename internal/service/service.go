// Package service реализует бизнес-логику витрины Давахана.
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/davakhana/internal/cart"
	"github.com/mmeshcher/davakhana/internal/delivery"
	"github.com/mmeshcher/davakhana/internal/model"
)

var (
	// ErrInvalidInput возвращается для некорректных данных запроса.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyCart возвращается при оформлении заказа из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrForbidden возвращается, если роль пользователя не допускает операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrCheckoutInProgress возвращается, если по корзине пользователя уже оформляется заказ.
	ErrCheckoutInProgress = cart.ErrCheckoutInProgress
)

// DefaultOpsPhone номер дежурной смены, на который уходят уведомления о заказах.
const DefaultOpsPhone = "+91 8707535798"

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	SeedMedicines(ctx context.Context, items []model.Medicine) error
	ListMedicines(ctx context.Context, query string) ([]model.Medicine, error)
	GetMedicine(ctx context.Context, id string) (*model.Medicine, error)
	CreateMedicine(ctx context.Context, m model.Medicine) error
	ListPendingMedicines(ctx context.Context) ([]model.Medicine, error)
	SetApprovalStatus(ctx context.Context, id string, status model.ApprovalStatus, at time.Time) (bool, error)

	CreateOrder(ctx context.Context, o model.Order) error
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersToShip(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
	ListOrdersToDeliver(ctx context.Context, arrivedBefore time.Time, limit int) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus, at time.Time) (bool, error)

	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserRole(ctx context.Context, id string, role model.Role) error
}

// Notifier доставляет служебные уведомления.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo      Repository
	estimator *delivery.Estimator
	carts     *cart.Registry
	notifier  Notifier
	logger    *zap.Logger

	now       func() time.Time
	intN      func(n int) int
	float64fn func() float64

	opsPhone         string
	latency          time.Duration
	shipAfter        time.Duration
	trackingInterval time.Duration
	maxNotifyWait    time.Duration
	notifyTimeout    time.Duration
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithNotifier задаёт канал уведомлений о заказах.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithEstimator подменяет калькулятор доставки.
func WithEstimator(e *delivery.Estimator) Option {
	return func(s *Service) { s.estimator = e }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom подменяет генераторы случайных чисел для номеров заказов и координат.
func WithRandom(intN func(n int) int, float64fn func() float64) Option {
	return func(s *Service) {
		s.intN = intN
		s.float64fn = float64fn
	}
}

// WithOpsPhone задаёт номер для уведомлений о новых заказах.
func WithOpsPhone(phone string) Option {
	return func(s *Service) { s.opsPhone = phone }
}

// WithLatency включает искусственную задержку операций каталога и заказов.
func WithLatency(d time.Duration) Option {
	return func(s *Service) { s.latency = d }
}

// WithShipAfter задаёт, через сколько заказ в обработке считается отгруженным.
func WithShipAfter(d time.Duration) Option {
	return func(s *Service) { s.shipAfter = d }
}

// WithTrackingInterval задаёт период фонового обновления статусов заказов.
func WithTrackingInterval(d time.Duration) Option {
	return func(s *Service) { s.trackingInterval = d }
}

// NewService создаёт сервис поверх указанного хранилища.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		estimator:        delivery.NewEstimator(delivery.DefaultPolicy()),
		carts:            cart.NewRegistry(),
		logger:           zap.NewNop(),
		now:              time.Now,
		intN:             rand.IntN,
		float64fn:        rand.Float64,
		opsPhone:         DefaultOpsPhone,
		shipAfter:        10 * time.Minute,
		trackingInterval: 30 * time.Second,
		maxNotifyWait:    3 * time.Second,
		notifyTimeout:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// pause выдерживает настроенную искусственную задержку с учётом отмены контекста.
func (s *Service) pause(ctx context.Context) error {
	return sleep(ctx, s.latency)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
