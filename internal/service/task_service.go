package service

import (
	"context"
	"fmt"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// TaskService coordinates task operations scoped to an owner. The
// owner id always comes from the authenticated request, never from
// request payloads, so one user's tasks are unreachable from another
// user's calls.
type TaskService interface {
	Create(ctx context.Context, ownerID int64, text, status, priority string) (*domain.Task, error)
	List(ctx context.Context, ownerID int64) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, ownerID, id int64, status string) (*domain.Task, error)
	UpdatePriority(ctx context.Context, ownerID, id int64, priority string) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type taskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) Create(ctx context.Context, ownerID int64, text, status, priority string) (*domain.Task, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: task text is required", ErrInvalidInput)
	}

	task := &domain.Task{
		Text:     text,
		Status:   status,
		Priority: priority,
		OwnerID:  ownerID,
	}

	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return s.tasks.ListByOwner(ctx, ownerID)
}

func (s *taskService) UpdateStatus(ctx context.Context, ownerID, id int64, status string) (*domain.Task, error) {
	return s.tasks.UpdateStatus(ctx, id, ownerID, status)
}

func (s *taskService) UpdatePriority(ctx context.Context, ownerID, id int64, priority string) (*domain.Task, error) {
	return s.tasks.UpdatePriority(ctx, id, ownerID, priority)
}

func (s *taskService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.tasks.Delete(ctx, id, ownerID)
}
