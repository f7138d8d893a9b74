package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmeshcher/davakhana/internal/model"
)

// SQLiteRepository хранит данные во встроенной базе SQLite.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository открывает базу SQLite по пути dsn и применяет миграции.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// одно соединение: SQLite не допускает параллельных писателей, а :memory: живёт в пределах соединения
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	r := &SQLiteRepository{db: db}

	if err := r.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

func (r *SQLiteRepository) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, r.db.DB, "migrations/sqlite"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает соединение с базой.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type sqliteMedicine struct {
	ID                   string        `db:"id"`
	Name                 string        `db:"name"`
	Description          string        `db:"description"`
	Manufacturer         string        `db:"manufacturer"`
	Category             string        `db:"category"`
	DosageForm           string        `db:"dosage_form"`
	ExpiryDate           string        `db:"expiry_date"`
	MRP                  int64         `db:"mrp"`
	Price                int64         `db:"price"`
	Stock                int           `db:"stock"`
	ImageURL             string        `db:"image_url"`
	RequiresPrescription bool          `db:"requires_prescription"`
	SellerID             string        `db:"seller_id"`
	Rating               float64       `db:"rating"`
	ReviewsCount         int           `db:"reviews_count"`
	Source               string        `db:"source"`
	IsGeneric            bool          `db:"is_generic"`
	ApprovalStatus       string        `db:"approval_status"`
	SubmittedAt          int64         `db:"submitted_at"`
	ApprovedAt           sql.NullInt64 `db:"approved_at"`
}

func newSQLiteMedicine(m model.Medicine) sqliteMedicine {
	row := sqliteMedicine{
		ID:                   m.ID,
		Name:                 m.Name,
		Description:          m.Description,
		Manufacturer:         m.Manufacturer,
		Category:             m.Category,
		DosageForm:           m.DosageForm,
		ExpiryDate:           m.ExpiryDate,
		MRP:                  toPaise(m.MRP),
		Price:                toPaise(m.Price),
		Stock:                m.Stock,
		ImageURL:             m.ImageURL,
		RequiresPrescription: m.RequiresPrescription,
		SellerID:             m.SellerID,
		Rating:               m.Rating,
		ReviewsCount:         m.ReviewsCount,
		Source:               string(m.Source),
		IsGeneric:            m.IsGeneric,
		ApprovalStatus:       string(m.ApprovalStatus),
		SubmittedAt:          m.SubmittedAt.UnixNano(),
	}
	if m.ApprovedAt != nil {
		row.ApprovedAt = sql.NullInt64{Int64: m.ApprovedAt.UnixNano(), Valid: true}
	}
	return row
}

func (row sqliteMedicine) model() model.Medicine {
	m := model.Medicine{
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
		SubmittedAt:          time.Unix(0, row.SubmittedAt).UTC(),
	}
	if row.ApprovedAt.Valid {
		t := time.Unix(0, row.ApprovedAt.Int64).UTC()
		m.ApprovedAt = &t
	}
	return m
}

const sqliteInsertMedicine = `
	INSERT INTO medicines (
		id, name, description, manufacturer, category, dosage_form, expiry_date,
		mrp, price, stock, image_url, requires_prescription, seller_id, rating,
		reviews_count, source, is_generic, approval_status, submitted_at, approved_at
	) VALUES (
		:id, :name, :description, :manufacturer, :category, :dosage_form, :expiry_date,
		:mrp, :price, :stock, :image_url, :requires_prescription, :seller_id, :rating,
		:reviews_count, :source, :is_generic, :approval_status, :submitted_at, :approved_at
	)`

// SeedMedicines добавляет препараты, которых ещё нет в каталоге.
func (r *SQLiteRepository) SeedMedicines(ctx context.Context, items []model.Medicine) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range items {
		if _, err := tx.NamedExecContext(ctx, sqliteInsertMedicine+` ON CONFLICT (id) DO NOTHING`, newSQLiteMedicine(m)); err != nil {
			return fmt.Errorf("seed medicine %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListMedicines возвращает одобренные препараты, подходящие под запрос.
func (r *SQLiteRepository) ListMedicines(ctx context.Context, query string) ([]model.Medicine, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	var rows []sqliteMedicine
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM medicines
		 WHERE approval_status = ?
		   AND (? = '' OR instr(lower(name), ?) > 0 OR instr(lower(category), ?) > 0 OR instr(lower(manufacturer), ?) > 0)
		 ORDER BY approved_at IS NULL, approved_at DESC, id`,
		string(model.ApprovalApproved), q, q, q, q,
	)
	if err != nil {
		return nil, fmt.Errorf("select medicines: %w", err)
	}

	return sqliteMedicines(rows), nil
}

// GetMedicine возвращает препарат по идентификатору.
func (r *SQLiteRepository) GetMedicine(ctx context.Context, id string) (*model.Medicine, error) {
	var row sqliteMedicine
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM medicines WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	m := row.model()
	return &m, nil
}

// CreateMedicine сохраняет новую позицию каталога.
func (r *SQLiteRepository) CreateMedicine(ctx context.Context, m model.Medicine) error {
	if _, err := r.db.NamedExecContext(ctx, sqliteInsertMedicine, newSQLiteMedicine(m)); err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

// ListPendingMedicines возвращает заявки на модерации, новые первыми.
func (r *SQLiteRepository) ListPendingMedicines(ctx context.Context) ([]model.Medicine, error) {
	var rows []sqliteMedicine
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM medicines WHERE approval_status = ? ORDER BY submitted_at DESC, id DESC`,
		string(model.ApprovalPending),
	)
	if err != nil {
		return nil, fmt.Errorf("select pending medicines: %w", err)
	}
	return sqliteMedicines(rows), nil
}

// SetApprovalStatus переводит заявку из pending в указанный статус. Возвращает false, если заявки на модерации нет.
func (r *SQLiteRepository) SetApprovalStatus(ctx context.Context, id string, status model.ApprovalStatus, at time.Time) (bool, error) {
	var approvedAt sql.NullInt64
	if status == model.ApprovalApproved {
		approvedAt = sql.NullInt64{Int64: at.UnixNano(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE medicines SET approval_status = ?, approved_at = ? WHERE id = ? AND approval_status = ?`,
		string(status), approvedAt, id, string(model.ApprovalPending),
	)
	if err != nil {
		return false, fmt.Errorf("update approval status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

type sqliteOrder struct {
	ID               string          `db:"id"`
	UserID           string          `db:"user_id"`
	Items            string          `db:"items"`
	Subtotal         int64           `db:"subtotal"`
	DeliveryFee      int64           `db:"delivery_fee"`
	Total            int64           `db:"total"`
	Status           string          `db:"status"`
	Tier             string          `db:"tier"`
	Address          string          `db:"address"`
	City             string          `db:"city"`
	Pincode          string          `db:"pincode"`
	DistanceKm       int             `db:"distance_km"`
	IsLocal          bool            `db:"is_local"`
	EstimatedArrival string          `db:"estimated_arrival"`
	ArrivalDate      int64           `db:"arrival_date"`
	Lat              sql.NullFloat64 `db:"lat"`
	Lng              sql.NullFloat64 `db:"lng"`
	CreatedAt        int64           `db:"created_at"`
	UpdatedAt        int64           `db:"updated_at"`
}

func newSQLiteOrder(o model.Order) (sqliteOrder, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return sqliteOrder{}, fmt.Errorf("marshal items: %w", err)
	}

	row := sqliteOrder{
		ID:               o.ID,
		UserID:           o.UserID,
		Items:            string(items),
		Subtotal:         toPaise(o.Subtotal),
		DeliveryFee:      toPaise(o.DeliveryFee),
		Total:            toPaise(o.Total),
		Status:           string(o.Status),
		Tier:             string(o.Tier),
		Address:          o.Address,
		City:             o.City,
		Pincode:          o.Pincode,
		DistanceKm:       o.DistanceKm,
		IsLocal:          o.IsLocal,
		EstimatedArrival: o.EstimatedArrival,
		ArrivalDate:      o.ArrivalDate.UnixNano(),
		CreatedAt:        o.CreatedAt.UnixNano(),
		UpdatedAt:        o.UpdatedAt.UnixNano(),
	}
	if o.DeliveryCoords != nil {
		row.Lat = sql.NullFloat64{Float64: o.DeliveryCoords.Lat, Valid: true}
		row.Lng = sql.NullFloat64{Float64: o.DeliveryCoords.Lng, Valid: true}
	}
	return row, nil
}

func (row sqliteOrder) model() (model.Order, error) {
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
		ArrivalDate:      time.Unix(0, row.ArrivalDate).UTC(),
		CreatedAt:        time.Unix(0, row.CreatedAt).UTC(),
		UpdatedAt:        time.Unix(0, row.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Items), &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("unmarshal items of %s: %w", row.ID, err)
	}
	if row.Lat.Valid && row.Lng.Valid {
		o.DeliveryCoords = &model.Coordinates{Lat: row.Lat.Float64, Lng: row.Lng.Float64}
	}
	return o, nil
}

// CreateOrder сохраняет заказ и списывает остатки препаратов в одной транзакции.
func (r *SQLiteRepository) CreateOrder(ctx context.Context, o model.Order) error {
	row, err := newSQLiteOrder(o)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids, qty := reservations(o.Items)
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE medicines SET stock = stock - ? WHERE id = ? AND approval_status = ? AND stock >= ?`,
			qty[id], id, string(model.ApprovalApproved), qty[id],
		)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return r.reservationError(ctx, tx, id)
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, items, subtotal, delivery_fee, total, status, tier, address, city, pincode,
			distance_km, is_local, estimated_arrival, arrival_date, lat, lng, created_at, updated_at
		) VALUES (
			:id, :user_id, :items, :subtotal, :delivery_fee, :total, :status, :tier, :address, :city, :pincode,
			:distance_km, :is_local, :estimated_arrival, :arrival_date, :lat, :lng, :created_at, :updated_at
		)`, row)
	if err != nil {
		if isSQLiteConstraint(err) {
			return fmt.Errorf("%w: %s", ErrOrderExists, o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) reservationError(ctx context.Context, tx *sqlx.Tx, id string) error {
	var status string
	err := tx.GetContext(ctx, &status, `SELECT approval_status FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && status != string(model.ApprovalApproved)) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("check medicine: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrNotEnoughStock, id)
}

// ListOrders возвращает заказы пользователя, новые первыми. Пустой userID означает все заказы.
func (r *SQLiteRepository) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	var rows []sqliteOrder
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM orders WHERE (? = '' OR user_id = ?) ORDER BY created_at DESC, id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return sqliteOrders(rows)
}

// GetOrder возвращает заказ по идентификатору.
func (r *SQLiteRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var row sqliteOrder
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o, err := row.model()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersToShip возвращает заказы в обработке, созданные не позже createdBefore, старые первыми.
func (r *SQLiteRepository) ListOrdersToShip(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	var rows []sqliteOrder
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM orders WHERE status = ? AND created_at <= ? ORDER BY created_at, id LIMIT ?`,
		string(model.OrderStatusProcessing), createdBefore.UnixNano(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders to ship: %w", err)
	}
	return sqliteOrders(rows)
}

// ListOrdersToDeliver возвращает отгруженные заказы с днём прибытия не позже arrivedBefore, старые первыми.
func (r *SQLiteRepository) ListOrdersToDeliver(ctx context.Context, arrivedBefore time.Time, limit int) ([]model.Order, error) {
	var rows []sqliteOrder
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM orders WHERE status = ? AND arrival_date <= ? ORDER BY created_at, id LIMIT ?`,
		string(model.OrderStatusShipped), arrivedBefore.UnixNano(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders to deliver: %w", err)
	}
	return sqliteOrders(rows)
}

// UpdateOrderStatus меняет статус заказа, если текущий статус равен from.
func (r *SQLiteRepository) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at.UnixNano(), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		if err := r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM orders WHERE id = ?`, id); err != nil {
			return false, fmt.Errorf("check order: %w", err)
		}
		if exists == 0 {
			return false, ErrNotFound
		}
	}
	return n == 1, nil
}

type sqliteUser struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
}

func (row sqliteUser) model() *model.User {
	return &model.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Role:      model.Role(row.Role),
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
}

// CreateUser сохраняет нового пользователя.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u model.User) error {
	email := normalizeEmail(u.Email)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, email, string(u.Role), u.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE email = ?`, normalizeEmail(email))
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `SELECT * FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg string) (*model.User, error) {
	var row sqliteUser
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.model(), nil
}

// UpdateUserRole меняет роль пользователя.
func (r *SQLiteRepository) UpdateUserRole(ctx context.Context, id string, role model.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func sqliteMedicines(rows []sqliteMedicine) []model.Medicine {
	out := make([]model.Medicine, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out
}

func sqliteOrders(rows []sqliteOrder) ([]model.Order, error) {
	out := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func isSQLiteConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
