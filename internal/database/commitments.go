package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no commitment exists for the given id
var ErrNotFound = errors.New("commitment not found")

// ErrAlreadyResolved is returned when a status change races against an
// earlier resolution and loses
var ErrAlreadyResolved = errors.New("commitment already resolved")

// CommitmentRepository handles commitment database operations
type CommitmentRepository struct {
	db *DB
}

// NewCommitmentRepository creates a new commitment repository
func NewCommitmentRepository(db *DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

// Create inserts a new commitment in pending status
func (r *CommitmentRepository) Create(ctx context.Context, c *models.Commitment) error {
	query := `
		INSERT INTO commitments (id, user_id, kind, description, scheduled_at, duration_minutes, status, habit_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		c.ID,
		c.UserID,
		c.Kind,
		c.Description,
		c.ScheduledAt,
		c.DurationMinutes,
		c.Status,
		c.HabitID,
		now,
		now,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create commitment: %w", err)
	}

	return nil
}

// GetByID retrieves a commitment by ID
func (r *CommitmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Commitment, error) {
	c := &models.Commitment{}
	var habitID uuid.NullUUID
	var resolvedAt sql.NullTime

	query := `
		SELECT id, user_id, kind, description, scheduled_at, duration_minutes, status, habit_id, created_at, updated_at, resolved_at
		FROM commitments
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.UserID,
		&c.Kind,
		&c.Description,
		&c.ScheduledAt,
		&c.DurationMinutes,
		&c.Status,
		&habitID,
		&c.CreatedAt,
		&c.UpdatedAt,
		&resolvedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}

	if habitID.Valid {
		c.HabitID = &habitID.UUID
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}

	return c, nil
}

// MarkResolved moves a pending commitment to a terminal status. The status
// predicate in the WHERE clause makes the transition atomic: a second caller
// finds zero rows updated and gets ErrAlreadyResolved or ErrNotFound.
func (r *CommitmentRepository) MarkResolved(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt time.Time) error {
	query := `
		UPDATE commitments
		SET status = $2, resolved_at = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, status, resolvedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to resolve commitment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Disambiguate: the row either never existed or already left pending.
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status.IsTerminal() {
			return ErrAlreadyResolved
		}
		return fmt.Errorf("failed to resolve commitment %s in status %s", id, existing.Status)
	}

	return nil
}

// ListByUserBetween retrieves a user's commitments scheduled inside [from, to)
func (r *CommitmentRepository) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*models.Commitment, error) {
	query := `
		SELECT id, user_id, kind, description, scheduled_at, duration_minutes, status, habit_id, created_at, updated_at, resolved_at
		FROM commitments
		WHERE user_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitments: %w", err)
	}
	defer rows.Close()

	return scanCommitments(rows)
}

// ListPendingByUser retrieves a user's pending commitments ordered by schedule
func (r *CommitmentRepository) ListPendingByUser(ctx context.Context, userID string) ([]*models.Commitment, error) {
	query := `
		SELECT id, user_id, kind, description, scheduled_at, duration_minutes, status, habit_id, created_at, updated_at, resolved_at
		FROM commitments
		WHERE user_id = $1 AND status = 'pending'
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitments: %w", err)
	}
	defer rows.Close()

	return scanCommitments(rows)
}

// ExistsForHabitSlot reports whether a commitment has already been
// materialized for the given habit occurrence
func (r *CommitmentRepository) ExistsForHabitSlot(ctx context.Context, habitID uuid.UUID, scheduledAt time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM commitments WHERE habit_id = $1 AND scheduled_at = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, habitID, scheduledAt).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check habit slot: %w", err)
	}

	return exists, nil
}

func scanCommitments(rows *sql.Rows) ([]*models.Commitment, error) {
	var commitments []*models.Commitment
	for rows.Next() {
		c := &models.Commitment{}
		var habitID uuid.NullUUID
		var resolvedAt sql.NullTime

		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Kind,
			&c.Description,
			&c.ScheduledAt,
			&c.DurationMinutes,
			&c.Status,
			&habitID,
			&c.CreatedAt,
			&c.UpdatedAt,
			&resolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}

		if habitID.Valid {
			c.HabitID = &habitID.UUID
		}
		if resolvedAt.Valid {
			c.ResolvedAt = &resolvedAt.Time
		}

		commitments = append(commitments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commitments: %w", err)
	}

	return commitments, nil
}
