package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MaezenDigital/Enemamar-backend/internal/domain"
)

var _ PaymentRepository = (*PostgresPaymentRepo)(nil)

const paymentColumns = `id, user_id, course_id, amount, tx_ref, ref_id, status, created_at, updated_at`

// PostgresPaymentRepo implements PaymentRepository.
type PostgresPaymentRepo struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepo(pool *pgxpool.Pool) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: pool}
}

func (r *PostgresPaymentRepo) Create(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	const query = `INSERT INTO payments (id, user_id, course_id, amount, tx_ref, ref_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + paymentColumns

	created, err := scanPayment(r.db.QueryRow(ctx, query,
		payment.ID, payment.UserID, payment.CourseID, payment.Amount, payment.TxRef, payment.RefID, payment.Status))
	if err != nil {
		return domain.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return created, nil
}

func (r *PostgresPaymentRepo) GetByTxRef(ctx context.Context, txRef string) (domain.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE tx_ref = $1 LIMIT 1`
	payment, err := scanPayment(r.db.QueryRow(ctx, query, txRef))
	if err != nil {
		return domain.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

func (r *PostgresPaymentRepo) UpdateStatus(ctx context.Context, txRef, status, refID string) (domain.Payment, error) {
	const query = `UPDATE payments
SET status = $2, ref_id = $3, updated_at = now()
WHERE tx_ref = $1
RETURNING ` + paymentColumns

	updated, err := scanPayment(r.db.QueryRow(ctx, query, txRef, status, refID))
	if err != nil {
		return domain.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	return updated, nil
}

func (r *PostgresPaymentRepo) ListByUser(ctx context.Context, userID int64, params ListParams) ([]domain.Payment, int, error) {
	return r.list(ctx, params, "user_id = $1", userID)
}

func (r *PostgresPaymentRepo) ListByCourse(ctx context.Context, courseID int64, params ListParams) ([]domain.Payment, int, error) {
	return r.list(ctx, params, "course_id = $1", courseID)
}

func (r *PostgresPaymentRepo) list(ctx context.Context, params ListParams, where string, arg any) ([]domain.Payment, int, error) {
	params = params.Normalize()

	args := []any{arg}
	if params.Filter != "" {
		args = append(args, params.Filter)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM payments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	return payments, total, rows.Err()
}

func (r *PostgresPaymentRepo) CourseRevenue(ctx context.Context, courseID int64) (float64, error) {
	var revenue float64
	const query = `SELECT COALESCE(sum(amount), 0) FROM payments WHERE course_id = $1 AND status = $2`
	if err := r.db.QueryRow(ctx, query, courseID, domain.PaymentSuccess).Scan(&revenue); err != nil {
		return 0, fmt.Errorf("course revenue: %w", err)
	}
	return revenue, nil
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.CourseID,
		&payment.Amount,
		&payment.TxRef,
		&payment.RefID,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	return payment, err
}
