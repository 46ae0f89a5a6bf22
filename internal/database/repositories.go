package database

import (
	"context"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/google/uuid"
)

// CommitmentRepositoryInterface defines the interface for commitment repository operations
// This interface enables better testability by allowing mock implementations
type CommitmentRepositoryInterface interface {
	Create(ctx context.Context, c *models.Commitment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Commitment, error)
	MarkResolved(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt time.Time) error
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*models.Commitment, error)
	ListPendingByUser(ctx context.Context, userID string) ([]*models.Commitment, error)
	ExistsForHabitSlot(ctx context.Context, habitID uuid.UUID, scheduledAt time.Time) (bool, error)
}

// HabitRepositoryInterface defines the interface for habit repository operations
type HabitRepositoryInterface interface {
	Create(ctx context.Context, h *models.Habit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error)
	List(ctx context.Context) ([]*models.Habit, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Habit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ CommitmentRepositoryInterface = (*CommitmentRepository)(nil)
	_ HabitRepositoryInterface      = (*HabitRepository)(nil)
)
