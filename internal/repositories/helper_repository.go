package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/favorapp/payments-service/internal/models"
)

type HelperRepository interface {
	Create(ctx context.Context, h *models.Helper) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Helper, error)
	GetByEmail(ctx context.Context, email string) (*models.Helper, error)
	GetByStripeConnectAccountID(ctx context.Context, acct string) (*models.Helper, error)
	Update(ctx context.Context, h *models.Helper) error
	UpdateIfVersion(ctx context.Context, h *models.Helper, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Helper) error) error
}

type helperRepo struct {
	*BaseVersionedRepo[*models.Helper]
	db DB
}

func NewHelperRepository(db DB) HelperRepository {
	r := &helperRepo{db: db}
	selectStmt := baseSelectHelper() + " WHERE id=$1"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, r.scanHelper)
	return r
}

func (r *helperRepo) Create(ctx context.Context, h *models.Helper) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO helpers (
            id,email,phone_number,
            first_name,last_name,city,state,zip_code
        ) VALUES (
            $1,$2,$3,
            $4,$5,$6,$7,$8
        )
    `,
		h.ID, h.Email, h.PhoneNumber,
		h.FirstName, h.LastName, h.City, h.State, h.ZipCode,
	)
	return err
}

func (r *helperRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Helper, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *helperRepo) GetByEmail(ctx context.Context, email string) (*models.Helper, error) {
	row := r.db.QueryRow(ctx, baseSelectHelper()+" WHERE email=$1", email)
	return r.scanHelper(row)
}

func (r *helperRepo) GetByStripeConnectAccountID(ctx context.Context, acct string) (*models.Helper, error) {
	row := r.db.QueryRow(ctx, baseSelectHelper()+" WHERE stripe_connect_account_id=$1", acct)
	return r.scanHelper(row)
}

func (r *helperRepo) Update(ctx context.Context, h *models.Helper) error {
	_, err := r.update(ctx, h, false, 0)
	return err
}

func (r *helperRepo) UpdateIfVersion(ctx context.Context, h *models.Helper, expected int64) (pgconn.CommandTag, error) {
	return r.update(ctx, h, true, expected)
}

func (r *helperRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.Helper) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *helperRepo) update(ctx context.Context, h *models.Helper, check bool, expected int64) (pgconn.CommandTag, error) {
	sql := `
        UPDATE helpers SET
            email=$1,phone_number=$2,
            first_name=$3,last_name=$4,city=$5,state=$6,zip_code=$7,
            account_status=$8,setup_progress=$9,
            stripe_connect_account_id=$10,
            updated_at=NOW()
    `
	args := []any{
		h.Email, h.PhoneNumber,
		h.FirstName, h.LastName, h.City, h.State, h.ZipCode,
		h.AccountStatus, h.SetupProgress,
		h.StripeConnectAccountID,
	}

	if check {
		sql += `, row_version=row_version+1 WHERE id=$11 AND row_version=$12`
		args = append(args, h.ID, expected)
	} else {
		sql += ` WHERE id=$11`
		args = append(args, h.ID)
	}
	return r.db.Exec(ctx, sql, args...)
}

func baseSelectHelper() string {
	return `
    SELECT
        id,email,phone_number,
        first_name,last_name,city,state,zip_code,
        account_status,setup_progress,
        stripe_connect_account_id,
        row_version,created_at,updated_at
    FROM helpers`
}

func (r *helperRepo) scanHelper(row pgx.Row) (*models.Helper, error) {
	var h models.Helper
	var acc, prog string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&h.ID, &h.Email, &h.PhoneNumber,
		&h.FirstName, &h.LastName, &h.City, &h.State, &h.ZipCode,
		&acc, &prog,
		&h.StripeConnectAccountID,
		&h.RowVersion, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	h.AccountStatus = models.AccountStatusType(acc)
	h.SetupProgress = models.SetupProgressType(prog)
	h.CreatedAt = createdAt
	h.UpdatedAt = updatedAt

	return &h, nil
}
