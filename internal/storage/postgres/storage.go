package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polkiloo/orderflow/internal/config"
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *zap.Logger
}

type userRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, user_id, amount, status, processing_started_at, completed_at, failed_at, cancelled_at,
       failure_reason, payment_gateway, payment_id, payment_status, created_at, updated_at`

// New connects to PostgreSQL and applies migrations when enabled.
func New(ctx context.Context, cfg config.Database, logger *zap.Logger) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if cfg.Migrate {
		if err := runMigrations(cfg.URI, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

// --- UserRepository implementation ---

func (r *userRepository) Create(ctx context.Context, name, email string) (*model.User, error) {
	const query = `INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id, created_at`
	u := model.User{Name: name, Email: email}
	err := r.storage.pool.QueryRow(ctx, query, name, email).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.storage.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.storage.pool.Query(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- OrderRepository implementation ---

func scanOrder(row pgx.Row, extra ...any) (*model.Order, error) {
	var o model.Order
	dest := []any{
		&o.ID, &o.UserID, &o.Amount, &o.Status,
		&o.ProcessingStartedAt, &o.CompletedAt, &o.FailedAt, &o.CancelledAt,
		&o.FailureReason, &o.PaymentGateway, &o.PaymentID, &o.PaymentStatus,
		&o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, userID int64, amount decimal.Decimal) (*model.Order, error) {
	query := `INSERT INTO orders (user_id, amount, status) VALUES ($1, $2, $3) RETURNING ` + orderColumns
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, userID, amount, model.OrderStatusPending))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status=$1 ORDER BY created_at, id`
	rows, err := r.storage.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func transitionQuery(id int64, t model.Transition) (string, []any) {
	args := []any{id, t.FromStrings(), t.To, t.At}
	sets := []string{"status = $3", "updated_at = $4"}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	switch t.To {
	case model.OrderStatusProcessing:
		sets = append(sets, "processing_started_at = $4")
	case model.OrderStatusCompleted:
		sets = append(sets, "completed_at = $4")
	case model.OrderStatusFailed:
		sets = append(sets, "failed_at = $4")
		set("failure_reason", t.Reason)
	case model.OrderStatusCancelled:
		sets = append(sets, "cancelled_at = $4")
	case model.OrderStatusPending:
		sets = append(sets,
			"processing_started_at = NULL",
			"failed_at = NULL",
			"failure_reason = NULL",
			"payment_gateway = CASE WHEN payment_status = 'paid' THEN payment_gateway END",
			"payment_id = CASE WHEN payment_status = 'paid' THEN payment_id END",
			"payment_status = CASE WHEN payment_status = 'paid' THEN payment_status END",
		)
	}

	if gw := t.Gateway; gw != nil {
		if gw.Gateway != "" {
			set("payment_gateway", gw.Gateway)
		}
		if gw.PaymentID != "" {
			set("payment_id", gw.PaymentID)
		}
		if gw.PaymentStatus != "" {
			set("payment_status", gw.PaymentStatus)
		}
	}

	query := `UPDATE orders SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND status = ANY($2) RETURNING ` + orderColumns
	return query, args
}

func (r *orderRepository) ApplyTransition(ctx context.Context, id int64, t model.Transition) (*model.Order, error) {
	query, args := transitionQuery(id, t)
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var current model.OrderStatus
	err = r.storage.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return nil, &domainErrors.TransitionError{OrderID: id, From: string(current), To: string(t.To)}
}

func (r *orderRepository) RecordPayment(ctx context.Context, id int64, create repository.CreatePaymentFunc) (*model.Order, *model.CreatePaymentResult, error) {
	var (
		order  *model.Order
		result *model.CreatePaymentResult
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}
		if order.HasPaymentCreated() {
			return domainErrors.ErrPaymentAlreadyCreated
		}
		if !order.CanBeProcessed() {
			return &domainErrors.TransitionError{OrderID: id, From: string(order.Status), To: string(model.PaymentStatusCreated)}
		}

		result, err = create(ctx, order)
		if err != nil {
			return err
		}
		if result == nil || !result.Success {
			reason := "empty gateway response"
			if result != nil && result.Error != "" {
				reason = result.Error
			}
			return fmt.Errorf("%w: %s", domainErrors.ErrPaymentNotCreated, reason)
		}

		const update = `UPDATE orders SET payment_gateway=$2, payment_id=$3, payment_status=$4, updated_at=NOW()
                        WHERE id=$1 RETURNING `
		order, err = scanOrder(tx.QueryRow(ctx, update+orderColumns, id, result.Gateway, result.GatewayOrderID, model.PaymentStatusCreated))
		return err
	})
	return order, result, err
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	rows, err := r.storage.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int64)
	for rows.Next() {
		var (
			status model.OrderStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *orderRepository) Recent(ctx context.Context, limit int) ([]model.RecentOrder, error) {
	query := `SELECT ` + orderColumns + `, user_name FROM (
                  SELECT o.*, u.name AS user_name FROM orders o JOIN users u ON u.id = o.user_id
                  ORDER BY o.created_at DESC, o.id DESC LIMIT $1
              ) recent ORDER BY created_at DESC, id DESC`
	rows, err := r.storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.RecentOrder
	for rows.Next() {
		var name string
		o, err := scanOrder(rows, &name)
		if err != nil {
			return nil, err
		}
		result = append(result, model.RecentOrder{Order: *o, UserName: name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) Totals(ctx context.Context) (*model.OrderTotals, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(ROUND(AVG(amount), 2), 0) FROM orders`
	var t model.OrderTotals
	if err := r.storage.pool.QueryRow(ctx, query).Scan(&t.Count, &t.TotalAmount, &t.AvgAmount); err != nil {
		return nil, err
	}
	return &t, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
