package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/forky/internal/database"
	"github.com/hitoshi/forky/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用した決済記録リポジトリ。
type PostgresPaymentRepo struct {
	db *sql.DB
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

// Create は決済記録を作成する。外部決済IDが重複する場合はErrDuplicateを返す。
func (r *PostgresPaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, course_id, amount, payment_id, status, success, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		payment.ID, payment.UserID, payment.CourseID, payment.Amount, payment.PaymentID,
		string(payment.Status), payment.Success, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// UpdateStatus はpendingの決済記録の状態を変更する。
// successフラグはcommittedの場合のみtrueになる。
func (r *PostgresPaymentRepo) UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = $2, success = $3, updated_at = now()
		 WHERE id = $1 AND status = 'pending'`,
		id, string(status), status == model.PaymentStatusCommitted,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListStalePending はbefore以前に作成されpendingのまま残っている決済記録のIDを古い順に返す。
func (r *PostgresPaymentRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM payments
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending payments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan payment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return ids, nil
}

// ResolvePending はpendingの決済記録を行ロックし、購入者の受給権に合わせて確定する。
// 購入処理側の確定と競合した場合でも、ロック取得後の状態を見て二重に更新しない。
// 同じ利用者・コースにcommittedの決済が既にある場合は、受給権があってもrejectedにする。
func (r *PostgresPaymentRepo) ResolvePending(ctx context.Context, id string) (model.PaymentStatus, error) {
	var resolved model.PaymentStatus

	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		var status string
		var owned, paid bool
		// 利用者行もロックし、同じ利用者の決済確定を直列化する。
		err := tx.QueryRowContext(ctx,
			`SELECT p.status, p.course_id::text = ANY(u.courses_bought),
			        EXISTS (
			            SELECT 1 FROM payments c
			            WHERE c.user_id = p.user_id AND c.course_id = p.course_id
			              AND c.status = 'committed' AND c.id <> p.id
			        )
			 FROM payments p
			 JOIN course_users u ON u.id = p.user_id
			 WHERE p.id = $1
			 FOR UPDATE OF p, u`,
			id,
		).Scan(&status, &owned, &paid)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payment not found: %s", id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		if model.PaymentStatus(status) != model.PaymentStatusPending {
			resolved = model.PaymentStatus(status)
			return nil
		}

		resolved = model.PaymentStatusRejected
		if owned && !paid {
			resolved = model.PaymentStatusCommitted
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE payments SET status = $2, success = $3, updated_at = now() WHERE id = $1`,
			id, string(resolved), resolved == model.PaymentStatusCommitted,
		); err != nil {
			return fmt.Errorf("failed to resolve payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return resolved, nil
}

// compile-time interface check
var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
