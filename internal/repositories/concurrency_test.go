package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/require"

	"github.com/favorapp/payments-service/internal/utils"
)

type versionedThing struct {
	id      string
	version int64
	value   string
}

func (v *versionedThing) GetID() string         { return v.id }
func (v *versionedThing) GetRowVersion() int64  { return v.version }
func (v *versionedThing) SetRowVersion(n int64) { v.version = n }

// commandTag fabricates a pgconn.CommandTag with the given rows-affected.
func commandTag(rows int) pgconn.CommandTag {
	if rows == 1 {
		return pgconn.CommandTag("UPDATE 1")
	}
	return pgconn.CommandTag("UPDATE 0")
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	stored := &versionedThing{id: "a", version: 3, value: "old"}

	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		cp := *stored
		return &cp, nil
	}
	update := func(ctx context.Context, e *versionedThing, expected int64) (pgconn.CommandTag, error) {
		require.Equal(t, int64(3), expected)
		stored.value = e.value
		stored.version++
		return commandTag(1), nil
	}

	err := WithRetry(context.Background(), 3, "a", getByID, update, func(e *versionedThing) error {
		e.value = "new"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "new", stored.value)
	require.Equal(t, int64(4), stored.version)
}

func TestWithRetryRetriesOnVersionConflict(t *testing.T) {
	stored := &versionedThing{id: "a", version: 1}
	attempts := 0

	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		cp := *stored
		return &cp, nil
	}
	update := func(ctx context.Context, e *versionedThing, expected int64) (pgconn.CommandTag, error) {
		attempts++
		if attempts == 1 {
			// Simulate a concurrent writer bumping the version.
			stored.version++
			return commandTag(0), nil
		}
		stored.version++
		return commandTag(1), nil
	}

	err := WithRetry(context.Background(), 3, "a", getByID, update, func(e *versionedThing) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	stored := &versionedThing{id: "a", version: 1}

	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		cp := *stored
		return &cp, nil
	}
	update := func(ctx context.Context, e *versionedThing, expected int64) (pgconn.CommandTag, error) {
		stored.version++
		return commandTag(0), nil
	}

	err := WithRetry(context.Background(), 3, "a", getByID, update, func(e *versionedThing) error { return nil })
	require.ErrorIs(t, err, utils.ErrRowVersionConflict)
	require.Contains(t, err.Error(), "too much contention")
}

func TestWithRetryMissingEntity(t *testing.T) {
	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		return nil, nil
	}
	update := func(ctx context.Context, e *versionedThing, expected int64) (pgconn.CommandTag, error) {
		t.Fatal("update must not be called for a missing entity")
		return commandTag(0), nil
	}

	err := WithRetry(context.Background(), 3, "missing", getByID, update, func(e *versionedThing) error { return nil })
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestWithRetryMutateErrorAborts(t *testing.T) {
	stored := &versionedThing{id: "a", version: 1}
	mutateErr := errors.New("invalid transition")

	getByID := func(ctx context.Context, id string) (*versionedThing, error) {
		cp := *stored
		return &cp, nil
	}
	update := func(ctx context.Context, e *versionedThing, expected int64) (pgconn.CommandTag, error) {
		t.Fatal("update must not run when mutate fails")
		return commandTag(0), nil
	}

	err := WithRetry(context.Background(), 3, "a", getByID, update, func(e *versionedThing) error { return mutateErr })
	require.ErrorIs(t, err, mutateErr)
}
