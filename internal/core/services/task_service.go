package services

import (
	"context"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

type TaskService struct {
	repo domain.TaskRepository
}

func NewTaskService(repo domain.TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
	}
}

type CreateTaskInput struct {
	UserID              string
	Name                string
	TargetDurationHours float64
	PointValue          int
}

// UpdateTaskInput carries a partial update: nil fields keep their current value.
type UpdateTaskInput struct {
	ID                  string
	UserID              string
	Name                *string
	TargetDurationHours *float64
	PointValue          *int
}

func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	task, err := domain.NewTask(input.UserID, input.Name, input.TargetDurationHours, input.PointValue)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *TaskService) Update(ctx context.Context, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.owned(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	name := task.Name
	if input.Name != nil {
		name = *input.Name
	}

	target := task.TargetDurationHours
	if input.TargetDurationHours != nil {
		target = *input.TargetDurationHours
	}

	points := task.PointValue
	if input.PointValue != nil {
		points = *input.PointValue
	}

	if err := task.Update(name, target, points); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *TaskService) Deactivate(ctx context.Context, id, userID string) (*domain.Task, error) {
	return s.setActive(ctx, id, userID, false)
}

func (s *TaskService) Reactivate(ctx context.Context, id, userID string) (*domain.Task, error) {
	return s.setActive(ctx, id, userID, true)
}

func (s *TaskService) setActive(ctx context.Context, id, userID string, active bool) (*domain.Task, error) {
	task, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if task.Active == active {
		return task, nil
	}

	if active {
		task.Reactivate()
	} else {
		task.Deactivate()
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *TaskService) List(ctx context.Context, userID string, includeInactive bool) ([]*domain.Task, error) {
	tasks, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if includeInactive {
		return tasks, nil
	}

	active := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

// owned hides tasks of other users behind ErrTaskNotFound.
func (s *TaskService) owned(ctx context.Context, id, userID string) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}

	return task, nil
}
