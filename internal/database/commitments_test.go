package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"github.com/google/uuid"
)

func newMockRepo(t *testing.T) (*CommitmentRepository, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return NewCommitmentRepository(NewFromConn(conn)), mock
}

func TestCommitmentRepository_Create(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	c := &models.Commitment{
		ID:              uuid.New(),
		UserID:          "user-1",
		Kind:            models.KindEvent,
		Description:     "Dinner with family",
		ScheduledAt:     time.Date(2024, 1, 2, 19, 0, 0, 0, time.UTC),
		DurationMinutes: 120,
		Status:          models.StatusPending,
	}

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO commitments`).
		WithArgs(c.ID, c.UserID, c.Kind, c.Description, c.ScheduledAt, c.DurationMinutes, c.Status, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated from insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCommitmentRepository_MarkResolved(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	id := uuid.New()
	resolvedAt := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE commitments`).
		WithArgs(id, models.StatusDone, resolvedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkResolved(context.Background(), id, models.StatusDone, resolvedAt); err != nil {
		t.Fatalf("MarkResolved returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCommitmentRepository_MarkResolved_AlreadyResolved(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	id := uuid.New()
	resolvedAt := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE commitments`).
		WithArgs(id, models.StatusMissed, resolvedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cols := []string{"id", "user_id", "kind", "description", "scheduled_at", "duration_minutes", "status", "habit_id", "created_at", "updated_at", "resolved_at"}
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM commitments`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id, "user-1", "event", "Dinner", now, 60, "done", nil, now, now, now))

	err := repo.MarkResolved(context.Background(), id, models.StatusMissed, resolvedAt)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("MarkResolved error = %v, want ErrAlreadyResolved", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCommitmentRepository_MarkResolved_NotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	id := uuid.New()
	resolvedAt := time.Now()

	mock.ExpectExec(`UPDATE commitments`).
		WithArgs(id, models.StatusDone, resolvedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`SELECT .+ FROM commitments`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	err := repo.MarkResolved(context.Background(), id, models.StatusDone, resolvedAt)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkResolved error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCommitmentRepository_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery(`SELECT .+ FROM commitments`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID error = %v, want ErrNotFound", err)
	}
}

func TestCommitmentRepository_ListByUserBetween(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	scheduled := from.Add(19 * time.Hour)
	id := uuid.New()
	now := time.Now()

	cols := []string{"id", "user_id", "kind", "description", "scheduled_at", "duration_minutes", "status", "habit_id", "created_at", "updated_at", "resolved_at"}
	mock.ExpectQuery(`SELECT .+ FROM commitments`).
		WithArgs("user-1", from, to).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(id, "user-1", "event", "Dinner with family", scheduled, 120, "pending", nil, now, now, nil))

	commitments, err := repo.ListByUserBetween(context.Background(), "user-1", from, to)
	if err != nil {
		t.Fatalf("ListByUserBetween returned error: %v", err)
	}
	if len(commitments) != 1 {
		t.Fatalf("got %d commitments, want 1", len(commitments))
	}
	if commitments[0].Description != "Dinner with family" {
		t.Errorf("Description = %q", commitments[0].Description)
	}
	if commitments[0].ResolvedAt != nil {
		t.Error("ResolvedAt should be nil for pending commitment")
	}
}

func TestCommitmentRepository_ExistsForHabitSlot(t *testing.T) {
	t.Parallel()

	repo, mock := newMockRepo(t)

	habitID := uuid.New()
	slot := time.Date(2024, 1, 3, 6, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(habitID, slot).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForHabitSlot(context.Background(), habitID, slot)
	if err != nil {
		t.Fatalf("ExistsForHabitSlot returned error: %v", err)
	}
	if !exists {
		t.Error("exists = false, want true")
	}
}
