package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/taskminder-api/internal/domain"
	"github.com/taskminder-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTask      = "task"
	fieldDueAt     = "due_at"
	fieldCompleted = "completed"
)

type Service interface {
	List(ctx context.Context, username string) ([]domain.Todo, error)
	Create(ctx context.Context, username string, req domain.CreateTodoRequest) (*domain.Todo, error)
	Update(ctx context.Context, username, todoID string, req domain.UpdateTodoRequest) (*domain.Todo, error)
	Delete(ctx context.Context, username, todoID string) error
}

type todoStore interface {
	Put(ctx context.Context, t *domain.Todo) error
	Get(ctx context.Context, todoID string) (*domain.Todo, error)
	ListByUsername(ctx context.Context, username string) ([]domain.Todo, error)
	Update(ctx context.Context, todoID string, updates map[string]interface{}) error
	Delete(ctx context.Context, todoID string) error
}

type service struct {
	repo todoStore
}

func NewService(repo todoStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, username string) ([]domain.Todo, error) {
	return s.repo.ListByUsername(ctx, username)
}

func (s *service) Create(ctx context.Context, username string, req domain.CreateTodoRequest) (*domain.Todo, error) {
	var dueAt *time.Time
	if req.DueAt != nil {
		t, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			return nil, fmt.Errorf("due_at must be RFC 3339: %w", domain.ErrBadRequest)
		}
		dueAt = &t
	}
	now := time.Now().UTC()
	t := &domain.Todo{
		TodoID:    id.New(),
		Username:  username,
		Task:      req.Task,
		DueAt:     dueAt,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Update(ctx context.Context, username, todoID string, req domain.UpdateTodoRequest) (*domain.Todo, error) {
	if _, err := s.owned(ctx, username, todoID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Task != nil {
		updates[fieldTask] = *req.Task
	}
	if req.DueAt != nil {
		t, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			return nil, fmt.Errorf("due_at must be RFC 3339: %w", domain.ErrBadRequest)
		}
		updates[fieldDueAt] = t
	}
	if req.Completed != nil {
		updates[fieldCompleted] = *req.Completed
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, todoID)
	}
	if err := s.repo.Update(ctx, todoID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, todoID)
}

func (s *service) Delete(ctx context.Context, username, todoID string) error {
	if _, err := s.owned(ctx, username, todoID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, todoID)
}

// owned fetches the todo and hides its existence from non-owners.
func (s *service) owned(ctx context.Context, username, todoID string) (*domain.Todo, error) {
	t, err := s.repo.Get(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if t.Username != username {
		return nil, fmt.Errorf("todo %s: %w", todoID, domain.ErrNotFound)
	}
	return t, nil
}
