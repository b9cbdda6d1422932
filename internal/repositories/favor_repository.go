package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/favorapp/payments-service/internal/models"
)

type FavorRepository interface {
	Create(ctx context.Context, f *models.Favor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Favor, error)
	ListOpen(ctx context.Context, limit int) ([]*models.Favor, error)
	// Claim assigns the favor to a helper iff it is still OPEN. Returns
	// false when someone else claimed it first.
	Claim(ctx context.Context, favorID, helperID uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, favorID uuid.UUID, status models.FavorStatusType) error
}

type favorRepo struct {
	db DB
}

func NewFavorRepository(db DB) FavorRepository {
	return &favorRepo{db: db}
}

func (r *favorRepo) Create(ctx context.Context, f *models.Favor) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO favors (
            id,requester_id,title,description,tip_cents,status
        ) VALUES ($1,$2,$3,$4,$5,$6)
    `,
		f.ID, f.RequesterID, f.Title, f.Description, f.TipCents, f.Status,
	)
	return err
}

func (r *favorRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Favor, error) {
	row := r.db.QueryRow(ctx, baseSelectFavor()+" WHERE id=$1", id)
	return scanFavor(row)
}

func (r *favorRepo) ListOpen(ctx context.Context, limit int) ([]*models.Favor, error) {
	rows, err := r.db.Query(ctx, baseSelectFavor()+` WHERE status=$1 ORDER BY created_at DESC LIMIT $2`,
		models.FavorStatusOpen, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Favor
	for rows.Next() {
		f, err := scanFavor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *favorRepo) Claim(ctx context.Context, favorID, helperID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE favors
        SET helper_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
    `, helperID, models.FavorStatusClaimed, favorID, models.FavorStatusOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *favorRepo) SetStatus(ctx context.Context, favorID uuid.UUID, status models.FavorStatusType) error {
	_, err := r.db.Exec(ctx, `
        UPDATE favors SET status=$1, updated_at=NOW() WHERE id=$2
    `, status, favorID)
	return err
}

func baseSelectFavor() string {
	return `
    SELECT
        id,requester_id,helper_id,title,description,tip_cents,status,
        created_at,updated_at
    FROM favors`
}

func scanFavor(row pgx.Row) (*models.Favor, error) {
	var f models.Favor
	var status string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&f.ID, &f.RequesterID, &f.HelperID, &f.Title, &f.Description, &f.TipCents, &status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	f.Status = models.FavorStatusType(status)
	f.CreatedAt = createdAt
	f.UpdatedAt = updatedAt
	return &f, nil
}
