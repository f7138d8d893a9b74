package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/davakhana/internal/model"
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

type pgMedicine struct {
	ID                   string     `db:"id"`
	Name                 string     `db:"name"`
	Description          string     `db:"description"`
	Manufacturer         string     `db:"manufacturer"`
	Category             string     `db:"category"`
	DosageForm           string     `db:"dosage_form"`
	ExpiryDate           string     `db:"expiry_date"`
	MRP                  int64      `db:"mrp"`
	Price                int64      `db:"price"`
	Stock                int        `db:"stock"`
	ImageURL             string     `db:"image_url"`
	RequiresPrescription bool       `db:"requires_prescription"`
	SellerID             string     `db:"seller_id"`
	Rating               float64    `db:"rating"`
	ReviewsCount         int        `db:"reviews_count"`
	Source               string     `db:"source"`
	IsGeneric            bool       `db:"is_generic"`
	ApprovalStatus       string     `db:"approval_status"`
	SubmittedAt          time.Time  `db:"submitted_at"`
	ApprovedAt           *time.Time `db:"approved_at"`
}

func (row pgMedicine) model() model.Medicine {
	return model.Medicine{
		ID:                   row.ID,
		Name:                 row.Name,
		Description:          row.Description,
		Manufacturer:         row.Manufacturer,
		Category:             row.Category,
		DosageForm:           row.DosageForm,
		ExpiryDate:           row.ExpiryDate,
		MRP:                  fromPaise(row.MRP),
		Price:                fromPaise(row.Price),
		Stock:                row.Stock,
		ImageURL:             row.ImageURL,
		RequiresPrescription: row.RequiresPrescription,
		SellerID:             row.SellerID,
		Rating:               row.Rating,
		ReviewsCount:         row.ReviewsCount,
		Source:               model.Source(row.Source),
		IsGeneric:            row.IsGeneric,
		ApprovalStatus:       model.ApprovalStatus(row.ApprovalStatus),
		SubmittedAt:          row.SubmittedAt,
		ApprovedAt:           row.ApprovedAt,
	}
}

const medicineColumns = `id, name, description, manufacturer, category, dosage_form, expiry_date,
	mrp, price, stock, image_url, requires_prescription, seller_id, rating,
	reviews_count, source, is_generic, approval_status, submitted_at, approved_at`

const pgInsertMedicine = `INSERT INTO medicines (` + medicineColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func medicineArgs(m model.Medicine) []any {
	return []any{
		m.ID, m.Name, m.Description, m.Manufacturer, m.Category, m.DosageForm, m.ExpiryDate,
		toPaise(m.MRP), toPaise(m.Price), m.Stock, m.ImageURL, m.RequiresPrescription, m.SellerID, m.Rating,
		m.ReviewsCount, string(m.Source), m.IsGeneric, string(m.ApprovalStatus), m.SubmittedAt, m.ApprovedAt,
	}
}

func (r *PostgresRepository) queryMedicines(ctx context.Context, sql string, args ...any) ([]model.Medicine, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select medicines: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[pgMedicine])
	if err != nil {
		return nil, fmt.Errorf("scan medicines: %w", err)
	}

	out := make([]model.Medicine, 0, len(items))
	for _, row := range items {
		out = append(out, row.model())
	}
	return out, nil
}

// SeedMedicines добавляет препараты, которых ещё нет в каталоге.
func (r *PostgresRepository) SeedMedicines(ctx context.Context, items []model.Medicine) error {
	batch := &pgx.Batch{}
	for _, m := range items {
		batch.Queue(pgInsertMedicine+` ON CONFLICT (id) DO NOTHING`, medicineArgs(m)...)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed medicines: %w", err)
	}
	return nil
}

// ListMedicines возвращает одобренные препараты, подходящие под запрос.
func (r *PostgresRepository) ListMedicines(ctx context.Context, query string) ([]model.Medicine, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	return r.queryMedicines(ctx,
		`SELECT `+medicineColumns+`
		 FROM medicines
		 WHERE approval_status = $1
		   AND ($2 = '' OR strpos(lower(name), $2) > 0 OR strpos(lower(category), $2) > 0 OR strpos(lower(manufacturer), $2) > 0)
		 ORDER BY approved_at DESC NULLS LAST, id`,
		string(model.ApprovalApproved), q,
	)
}

// GetMedicine возвращает препарат по идентификатору.
func (r *PostgresRepository) GetMedicine(ctx context.Context, id string) (*model.Medicine, error) {
	items, err := r.queryMedicines(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// CreateMedicine сохраняет новую позицию каталога.
func (r *PostgresRepository) CreateMedicine(ctx context.Context, m model.Medicine) error {
	if _, err := r.pool.Exec(ctx, pgInsertMedicine, medicineArgs(m)...); err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

// ListPendingMedicines возвращает заявки на модерации, новые первыми.
func (r *PostgresRepository) ListPendingMedicines(ctx context.Context) ([]model.Medicine, error) {
	return r.queryMedicines(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE approval_status = $1 ORDER BY submitted_at DESC, id DESC`,
		string(model.ApprovalPending),
	)
}

// SetApprovalStatus переводит заявку из pending в указанный статус. Возвращает false, если заявки на модерации нет.
func (r *PostgresRepository) SetApprovalStatus(ctx context.Context, id string, status model.ApprovalStatus, at time.Time) (bool, error) {
	var approvedAt *time.Time
	if status == model.ApprovalApproved {
		approvedAt = &at
	}

	var updated bool
	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE medicines SET approval_status = $2, approved_at = $3 WHERE id = $1 AND approval_status = $4`,
			id, string(status), approvedAt, string(model.ApprovalPending),
		)
		if err != nil {
			return err
		}
		updated = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("update approval status: %w", err)
	}
	return updated, nil
}

type pgOrder struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	Items            []byte    `db:"items"`
	Subtotal         int64     `db:"subtotal"`
	DeliveryFee      int64     `db:"delivery_fee"`
	Total            int64     `db:"total"`
	Status           string    `db:"status"`
	Tier             string    `db:"tier"`
	Address          string    `db:"address"`
	City             string    `db:"city"`
	Pincode          string    `db:"pincode"`
	DistanceKm       int       `db:"distance_km"`
	IsLocal          bool      `db:"is_local"`
	EstimatedArrival string    `db:"estimated_arrival"`
	ArrivalDate      time.Time `db:"arrival_date"`
	Lat              *float64  `db:"lat"`
	Lng              *float64  `db:"lng"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row pgOrder) model() (model.Order, error) {
	o := model.Order{
		ID:               row.ID,
		UserID:           row.UserID,
		Subtotal:         fromPaise(row.Subtotal),
		DeliveryFee:      fromPaise(row.DeliveryFee),
		Total:            fromPaise(row.Total),
		Status:           model.OrderStatus(row.Status),
		Tier:             model.DeliveryTier(row.Tier),
		Address:          row.Address,
		City:             row.City,
		Pincode:          row.Pincode,
		DistanceKm:       row.DistanceKm,
		IsLocal:          row.IsLocal,
		EstimatedArrival: row.EstimatedArrival,
		ArrivalDate:      row.ArrivalDate,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Items, &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("unmarshal items of %s: %w", row.ID, err)
	}
	if row.Lat != nil && row.Lng != nil {
		o.DeliveryCoords = &model.Coordinates{Lat: *row.Lat, Lng: *row.Lng}
	}
	return o, nil
}

const orderColumns = `id, user_id, items, subtotal, delivery_fee, total, status, tier, address, city, pincode,
	distance_km, is_local, estimated_arrival, arrival_date, lat, lng, created_at, updated_at`

func (r *PostgresRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[pgOrder])
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}

	out := make([]model.Order, 0, len(items))
	for _, row := range items {
		o, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// CreateOrder сохраняет заказ и списывает остатки препаратов в одной транзакции.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	var lat, lng *float64
	if o.DeliveryCoords != nil {
		lat, lng = &o.DeliveryCoords.Lat, &o.DeliveryCoords.Lng
	}

	ids, qty := reservations(o.Items)

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// идентификаторы отсортированы, блокировки строк берутся в одном порядке
		for _, id := range ids {
			tag, err := tx.Exec(ctx,
				`UPDATE medicines SET stock = stock - $2 WHERE id = $1 AND approval_status = $3 AND stock >= $2`,
				id, qty[id], string(model.ApprovalApproved),
			)
			if err != nil {
				return fmt.Errorf("reserve stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return reservationError(ctx, tx, id)
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (`+orderColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
			o.ID, o.UserID, items, toPaise(o.Subtotal), toPaise(o.DeliveryFee), toPaise(o.Total),
			string(o.Status), string(o.Tier), o.Address, o.City, o.Pincode,
			o.DistanceKm, o.IsLocal, o.EstimatedArrival, o.ArrivalDate, lat, lng, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrOrderExists, o.ID)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func reservationError(ctx context.Context, tx pgx.Tx, id string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT approval_status FROM medicines WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && status != string(model.ApprovalApproved)) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("check medicine: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrNotEnoughStock, id)
}

// ListOrders возвращает заказы пользователя, новые первыми. Пустой userID означает все заказы.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE ($1 = '' OR user_id = $1) ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	orders, err := r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

// ListOrdersToShip возвращает заказы в обработке, созданные не позже createdBefore, старые первыми.
func (r *PostgresRepository) ListOrdersToShip(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE status = $1 AND created_at <= $2
		 ORDER BY created_at, id
		 LIMIT $3`,
		string(model.OrderStatusProcessing), createdBefore, limit,
	)
}

// ListOrdersToDeliver возвращает отгруженные заказы с днём прибытия не позже arrivedBefore, старые первыми.
func (r *PostgresRepository) ListOrdersToDeliver(ctx context.Context, arrivedBefore time.Time, limit int) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE status = $1 AND arrival_date <= $2
		 ORDER BY created_at, id
		 LIMIT $3`,
		string(model.OrderStatusShipped), arrivedBefore, limit,
	)
}

// UpdateOrderStatus меняет статус заказа, если текущий статус равен from.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at,
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) error {
	email := normalizeEmail(u.Email)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, email, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, role, created_at FROM users WHERE email = $1`, normalizeEmail(email))
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, role, created_at FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) getUser(ctx context.Context, sql string, arg string) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// UpdateUserRole меняет роль пользователя.
func (r *PostgresRepository) UpdateUserRole(ctx context.Context, id string, role model.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
