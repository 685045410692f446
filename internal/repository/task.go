package repository

import (
	"context"
	"errors"

	"taskboard/internal/domain"
)

// ErrNotFound is returned when an owner-scoped lookup matches nothing.
// A task that exists but belongs to another user reports the same
// error as a task that does not exist at all.
var ErrNotFound = errors.New("task not found")

// TaskRepository exposes persistence operations for Task records.
// Every operation except Create takes the owner's id and conjoins it
// with the record filter; there is no unscoped access path.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, id, ownerID int64, status string) (*domain.Task, error)
	UpdatePriority(ctx context.Context, id, ownerID int64, priority string) (*domain.Task, error)
	Delete(ctx context.Context, id, ownerID int64) error
}
