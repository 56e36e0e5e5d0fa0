// Package boards manages the shared task and deadline boards that a match
// unlocks. Every operation checks that the actor is one of the match's two
// members.
package boards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/kikipou/Loopi-App/internal/repo/postgres"
	"github.com/kikipou/Loopi-App/internal/services/matches"
)

var (
	ErrValidation       = errors.New("boards: invalid input")
	ErrMatchNotFound    = errors.New("boards: match not found")
	ErrForbidden        = errors.New("boards: not a member of this match")
	ErrTaskNotFound     = errors.New("boards: task not found")
	ErrDeadlineNotFound = errors.New("boards: deadline not found")
)

const (
	StatusTodo  = "todo"
	StatusDoing = "doing"
	StatusDone  = "done"

	maxTitleLen = 200
	maxNotesLen = 2000
)

type TaskStore interface {
	Create(ctx context.Context, rec pgrepo.TaskRecord) (pgrepo.TaskRecord, error)
	GetByID(ctx context.Context, id int64) (pgrepo.TaskRecord, error)
	ListByMatch(ctx context.Context, matchID int64) ([]pgrepo.TaskRecord, error)
	Update(ctx context.Context, id int64, patch pgrepo.TaskPatch) (pgrepo.TaskRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type DeadlineStore interface {
	Create(ctx context.Context, rec pgrepo.DeadlineRecord) (pgrepo.DeadlineRecord, error)
	GetByID(ctx context.Context, id int64) (pgrepo.DeadlineRecord, error)
	ListByMatch(ctx context.Context, matchID int64) ([]pgrepo.DeadlineRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// MembershipChecker guards board access; implemented by the matches
// service.
type MembershipChecker interface {
	Membership(ctx context.Context, matchID int64, userID string) (pgrepo.MatchRecord, error)
}

type CreateTaskInput struct {
	Title      string
	Details    string
	DueDate    *time.Time
	AssignedTo string
}

type UpdateTaskInput struct {
	Title      *string
	Details    *string
	Status     *string
	DueDate    *time.Time
	ClearDue   bool
	AssignedTo *string
}

type CreateDeadlineInput struct {
	Title   string
	Notes   string
	DueDate time.Time
	DueTime string
}

// Summary counts a match's deadlines that need attention: overdue ones and
// ones due within the due-soon horizon (today inclusive).
type Summary struct {
	DueSoon int
	Overdue int
	Total   int
}

type Service struct {
	tasks       TaskStore
	deadlines   DeadlineStore
	membership  MembershipChecker
	dueSoonDays int
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(tasks TaskStore, deadlines DeadlineStore, membership MembershipChecker, dueSoonDays int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dueSoonDays <= 0 {
		dueSoonDays = 3
	}
	return &Service{
		tasks:       tasks,
		deadlines:   deadlines,
		membership:  membership,
		dueSoonDays: dueSoonDays,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) CreateTask(ctx context.Context, matchID int64, actorID string, input CreateTaskInput) (pgrepo.TaskRecord, error) {
	if err := s.requireMember(ctx, matchID, actorID); err != nil {
		return pgrepo.TaskRecord{}, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || len(input.Title) > maxTitleLen || len(input.Details) > maxNotesLen {
		return pgrepo.TaskRecord{}, ErrValidation
	}

	rec, err := s.tasks.Create(ctx, pgrepo.TaskRecord{
		MatchID:    matchID,
		Title:      input.Title,
		Details:    input.Details,
		Status:     StatusTodo,
		DueDate:    input.DueDate,
		AssignedTo: input.AssignedTo,
		CreatedBy:  actorID,
	})
	if err != nil {
		return pgrepo.TaskRecord{}, fmt.Errorf("create task: %w", err)
	}
	return rec, nil
}

func (s *Service) ListTasks(ctx context.Context, matchID int64, actorID string) ([]pgrepo.TaskRecord, error) {
	if err := s.requireMember(ctx, matchID, actorID); err != nil {
		return nil, err
	}

	list, err := s.tasks.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

func (s *Service) UpdateTask(ctx context.Context, matchID, taskID int64, actorID string, input UpdateTaskInput) (pgrepo.TaskRecord, error) {
	if _, err := s.taskForMember(ctx, matchID, taskID, actorID); err != nil {
		return pgrepo.TaskRecord{}, err
	}

	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" || len(trimmed) > maxTitleLen {
			return pgrepo.TaskRecord{}, ErrValidation
		}
		input.Title = &trimmed
	}
	if input.Details != nil && len(*input.Details) > maxNotesLen {
		return pgrepo.TaskRecord{}, ErrValidation
	}
	if input.Status != nil && !validStatus(*input.Status) {
		return pgrepo.TaskRecord{}, ErrValidation
	}

	rec, err := s.tasks.Update(ctx, taskID, pgrepo.TaskPatch{
		Title:      input.Title,
		Details:    input.Details,
		Status:     input.Status,
		DueDate:    input.DueDate,
		ClearDue:   input.ClearDue,
		AssignedTo: input.AssignedTo,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrTaskNotFound) {
			return pgrepo.TaskRecord{}, ErrTaskNotFound
		}
		return pgrepo.TaskRecord{}, fmt.Errorf("update task: %w", err)
	}
	return rec, nil
}

// CycleTaskStatus advances todo -> doing -> done and wraps back to todo.
func (s *Service) CycleTaskStatus(ctx context.Context, matchID, taskID int64, actorID string) (pgrepo.TaskRecord, error) {
	task, err := s.taskForMember(ctx, matchID, taskID, actorID)
	if err != nil {
		return pgrepo.TaskRecord{}, err
	}

	next := nextStatus(task.Status)
	rec, err := s.tasks.Update(ctx, taskID, pgrepo.TaskPatch{Status: &next})
	if err != nil {
		if errors.Is(err, pgrepo.ErrTaskNotFound) {
			return pgrepo.TaskRecord{}, ErrTaskNotFound
		}
		return pgrepo.TaskRecord{}, fmt.Errorf("cycle task status: %w", err)
	}
	return rec, nil
}

func (s *Service) DeleteTask(ctx context.Context, matchID, taskID int64, actorID string) error {
	if _, err := s.taskForMember(ctx, matchID, taskID, actorID); err != nil {
		return err
	}

	deleted, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}

func (s *Service) CreateDeadline(ctx context.Context, matchID int64, actorID string, input CreateDeadlineInput) (pgrepo.DeadlineRecord, error) {
	if err := s.requireMember(ctx, matchID, actorID); err != nil {
		return pgrepo.DeadlineRecord{}, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || len(input.Title) > maxTitleLen || len(input.Notes) > maxNotesLen {
		return pgrepo.DeadlineRecord{}, ErrValidation
	}
	if input.DueDate.IsZero() {
		return pgrepo.DeadlineRecord{}, ErrValidation
	}
	if input.DueTime != "" {
		if _, err := time.Parse("15:04", input.DueTime); err != nil {
			return pgrepo.DeadlineRecord{}, ErrValidation
		}
	}

	rec, err := s.deadlines.Create(ctx, pgrepo.DeadlineRecord{
		MatchID:   matchID,
		Title:     input.Title,
		Notes:     input.Notes,
		DueDate:   input.DueDate,
		DueTime:   input.DueTime,
		CreatedBy: actorID,
	})
	if err != nil {
		return pgrepo.DeadlineRecord{}, fmt.Errorf("create deadline: %w", err)
	}
	return rec, nil
}

func (s *Service) ListDeadlines(ctx context.Context, matchID int64, actorID string) ([]pgrepo.DeadlineRecord, error) {
	if err := s.requireMember(ctx, matchID, actorID); err != nil {
		return nil, err
	}

	list, err := s.deadlines.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	return list, nil
}

func (s *Service) DeleteDeadline(ctx context.Context, matchID, deadlineID int64, actorID string) error {
	deadline, err := s.deadlines.GetByID(ctx, deadlineID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrDeadlineNotFound) {
			return ErrDeadlineNotFound
		}
		return fmt.Errorf("get deadline: %w", err)
	}
	// A deadline is only addressable through its own match's board.
	if deadline.MatchID != matchID {
		return ErrDeadlineNotFound
	}
	if err := s.requireMember(ctx, matchID, actorID); err != nil {
		return err
	}

	deleted, err := s.deadlines.Delete(ctx, deadlineID)
	if err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	if !deleted {
		return ErrDeadlineNotFound
	}
	return nil
}

func (s *Service) DeadlineSummary(ctx context.Context, matchID int64, actorID string) (Summary, error) {
	list, err := s.ListDeadlines(ctx, matchID, actorID)
	if err != nil {
		return Summary{}, err
	}

	today := truncateToDay(s.now())
	horizon := today.AddDate(0, 0, s.dueSoonDays)

	summary := Summary{Total: len(list)}
	for _, rec := range list {
		due := truncateToDay(rec.DueDate)
		switch {
		case due.Before(today):
			summary.Overdue++
		case !due.After(horizon):
			summary.DueSoon++
		}
	}
	return summary, nil
}

func (s *Service) requireMember(ctx context.Context, matchID int64, actorID string) error {
	_, err := s.membership.Membership(ctx, matchID, actorID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, matches.ErrNotFound):
		return ErrMatchNotFound
	case errors.Is(err, matches.ErrForbidden):
		return ErrForbidden
	default:
		return fmt.Errorf("check membership: %w", err)
	}
}

func (s *Service) taskForMember(ctx context.Context, matchID, taskID int64, actorID string) (pgrepo.TaskRecord, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTaskNotFound) {
			return pgrepo.TaskRecord{}, ErrTaskNotFound
		}
		return pgrepo.TaskRecord{}, fmt.Errorf("get task: %w", err)
	}
	// A task is only addressable through its own match's board.
	if task.MatchID != matchID {
		return pgrepo.TaskRecord{}, ErrTaskNotFound
	}
	if err := s.requireMember(ctx, matchID, actorID); err != nil {
		return pgrepo.TaskRecord{}, err
	}
	return task, nil
}

func validStatus(status string) bool {
	return status == StatusTodo || status == StatusDoing || status == StatusDone
}

func nextStatus(status string) string {
	switch status {
	case StatusTodo:
		return StatusDoing
	case StatusDoing:
		return StatusDone
	default:
		return StatusTodo
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
