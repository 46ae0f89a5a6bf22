package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/google/uuid"
)

// ErrHabitNotFound is returned when no habit exists for the given id
var ErrHabitNotFound = errors.New("habit not found")

// HabitRepository handles habit database operations
type HabitRepository struct {
	db *DB
}

// NewHabitRepository creates a new habit repository
func NewHabitRepository(db *DB) *HabitRepository {
	return &HabitRepository{db: db}
}

// Create inserts a new habit
func (r *HabitRepository) Create(ctx context.Context, h *models.Habit) error {
	query := `
		INSERT INTO habits (id, user_id, description, frequency, time_of_day, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		h.ID,
		h.UserID,
		h.Description,
		h.Frequency,
		h.TimeOfDay,
		h.DurationMinutes,
	).Scan(&h.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID retrieves a habit by ID
func (r *HabitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	h := &models.Habit{}

	query := `
		SELECT id, user_id, description, frequency, time_of_day, duration_minutes, created_at
		FROM habits
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&h.ID,
		&h.UserID,
		&h.Description,
		&h.Frequency,
		&h.TimeOfDay,
		&h.DurationMinutes,
		&h.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}

	return h, nil
}

// List retrieves all habits across users, used by the materializer sweep
func (r *HabitRepository) List(ctx context.Context) ([]*models.Habit, error) {
	query := `
		SELECT id, user_id, description, frequency, time_of_day, duration_minutes, created_at
		FROM habits
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return scanHabits(rows)
}

// ListByUser retrieves all habits owned by a user
func (r *HabitRepository) ListByUser(ctx context.Context, userID string) ([]*models.Habit, error) {
	query := `
		SELECT id, user_id, description, frequency, time_of_day, duration_minutes, created_at
		FROM habits
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	return scanHabits(rows)
}

// Delete removes a habit by ID
func (r *HabitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrHabitNotFound
	}

	return nil
}

func scanHabits(rows *sql.Rows) ([]*models.Habit, error) {
	var habits []*models.Habit
	for rows.Next() {
		h := &models.Habit{}
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.Description,
			&h.Frequency,
			&h.TimeOfDay,
			&h.DurationMinutes,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}

	return habits, nil
}
