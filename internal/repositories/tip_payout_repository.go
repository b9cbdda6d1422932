package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/favorapp/payments-service/internal/models"
)

type TipPayoutRepository interface {
	Create(ctx context.Context, p *models.TipPayout) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TipPayout, error)
	GetByFavorID(ctx context.Context, favorID uuid.UUID) (*models.TipPayout, error)
	GetByStripeTransferID(ctx context.Context, transferID string) (*models.TipPayout, error)
	// ListDueForRetry returns FAILED payouts whose next_attempt_at has passed.
	ListDueForRetry(ctx context.Context, now time.Time) ([]*models.TipPayout, error)
	// ListStaleProcessing returns PROCESSING payouts not touched since cutoff.
	ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]*models.TipPayout, error)
	UpdateIfVersion(ctx context.Context, p *models.TipPayout, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.TipPayout) error) error
}

type tipPayoutRepo struct {
	*BaseVersionedRepo[*models.TipPayout]
	db DB
}

func NewTipPayoutRepository(db DB) TipPayoutRepository {
	r := &tipPayoutRepo{db: db}
	selectStmt := baseSelectTipPayout() + " WHERE id=$1"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, scanTipPayout)
	return r
}

func (r *tipPayoutRepo) Create(ctx context.Context, p *models.TipPayout) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO tip_payouts (
            id,helper_id,favor_id,amount_cents,status
        ) VALUES ($1,$2,$3,$4,$5)
    `,
		p.ID, p.HelperID, p.FavorID, p.AmountCents, p.Status,
	)
	return err
}

func (r *tipPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TipPayout, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *tipPayoutRepo) GetByFavorID(ctx context.Context, favorID uuid.UUID) (*models.TipPayout, error) {
	row := r.db.QueryRow(ctx, baseSelectTipPayout()+" WHERE favor_id=$1 LIMIT 1", favorID)
	return scanTipPayout(row)
}

func (r *tipPayoutRepo) GetByStripeTransferID(ctx context.Context, transferID string) (*models.TipPayout, error) {
	row := r.db.QueryRow(ctx, baseSelectTipPayout()+" WHERE stripe_transfer_id=$1 LIMIT 1", transferID)
	return scanTipPayout(row)
}

func (r *tipPayoutRepo) ListDueForRetry(ctx context.Context, now time.Time) ([]*models.TipPayout, error) {
	rows, err := r.db.Query(ctx, baseSelectTipPayout()+`
        WHERE status=$1 AND next_attempt_at IS NOT NULL AND next_attempt_at <= $2`,
		models.PayoutStatusFailed, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTipPayouts(rows)
}

func (r *tipPayoutRepo) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]*models.TipPayout, error) {
	rows, err := r.db.Query(ctx, baseSelectTipPayout()+`
        WHERE status=$1 AND updated_at < $2`,
		models.PayoutStatusProcessing, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTipPayouts(rows)
}

func (r *tipPayoutRepo) UpdateIfVersion(ctx context.Context, p *models.TipPayout, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE tip_payouts SET
            amount_cents=$1,status=$2,stripe_transfer_id=$3,
            last_failure_reason=$4,retry_count=$5,
            last_attempt_at=$6,next_attempt_at=$7,
            row_version=row_version+1,updated_at=NOW()
        WHERE id=$8 AND row_version=$9
    `,
		p.AmountCents, p.Status, p.StripeTransferID,
		p.LastFailureReason, p.RetryCount,
		p.LastAttemptAt, p.NextAttemptAt,
		p.ID, expected,
	)
}

func (r *tipPayoutRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.TipPayout) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func collectTipPayouts(rows pgx.Rows) ([]*models.TipPayout, error) {
	var out []*models.TipPayout
	for rows.Next() {
		p, err := scanTipPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func baseSelectTipPayout() string {
	return `
    SELECT
        id,helper_id,favor_id,amount_cents,status,
        stripe_transfer_id,last_failure_reason,retry_count,
        last_attempt_at,next_attempt_at,
        row_version,created_at,updated_at
    FROM tip_payouts`
}

func scanTipPayout(row pgx.Row) (*models.TipPayout, error) {
	var p models.TipPayout
	var status string

	err := row.Scan(
		&p.ID, &p.HelperID, &p.FavorID, &p.AmountCents, &status,
		&p.StripeTransferID, &p.LastFailureReason, &p.RetryCount,
		&p.LastAttemptAt, &p.NextAttemptAt,
		&p.RowVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.Status = models.PayoutStatusType(status)
	return &p, nil
}
