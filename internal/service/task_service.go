package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	dom "TodoManager/internal/domain"
	"TodoManager/internal/repo"

	"golang.org/x/sync/singleflight"
)

const (
	MaxTitleLen       = 50
	MaxDescriptionLen = 200
)

var (
	ErrNotFound   = errors.New("task not found")
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes the first invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type TaskService struct {
	store repo.TaskStore
	now   func() time.Time
	sf    singleflight.Group
	gen   atomic.Uint64
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// NewTaskService creates a TaskService backed by store.
func NewTaskService(store repo.TaskStore, opts ...Option) *TaskService {
	s := &TaskService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns tasks in store order, narrowed by f.
func (s *TaskService) List(ctx context.Context, f dom.TaskFilter) ([]dom.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	return filterTasks(tasks, f), nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (dom.Task, error) {
	if err := ctx.Err(); err != nil {
		return dom.Task{}, err
	}
	tasks, err := s.load()
	if err != nil {
		return dom.Task{}, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return dom.Task{}, ErrNotFound
	}
	return tasks[i], nil
}

// Create validates in, assigns the next id and persists the new task.
func (s *TaskService) Create(ctx context.Context, in dom.NewTask) (dom.Task, error) {
	if err := ctx.Err(); err != nil {
		return dom.Task{}, err
	}
	if err := validateTitle(in.Title); err != nil {
		return dom.Task{}, err
	}
	if err := validateDescription(in.Description); err != nil {
		return dom.Task{}, err
	}

	now := s.stamp()
	t := dom.Task{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		CreatedAt:   now,
	}
	if !in.CreatedAt.IsZero() {
		t.CreatedAt = dom.Timestamp(in.CreatedAt)
	}
	if t.Completed {
		t.CompletedAt = &now
	}

	err := s.store.Mutate(func(tasks []dom.Task) ([]dom.Task, bool, error) {
		t.ID = nextID(tasks)
		return append(tasks, t), true, nil
	})
	if err != nil {
		return dom.Task{}, err
	}
	s.gen.Add(1)
	return t, nil
}

// Update applies the fields present in p. A missing id is ErrNotFound before
// any field is validated. An empty patch returns the task without writing. completed_at follows transitions of Completed only.
func (s *TaskService) Update(ctx context.Context, id int64, p dom.TaskPatch) (dom.Task, error) {
	if err := ctx.Err(); err != nil {
		return dom.Task{}, err
	}

	var out dom.Task
	changed := false
	err := s.store.Mutate(func(tasks []dom.Task) ([]dom.Task, bool, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		if err := validatePatch(p); err != nil {
			return nil, false, err
		}
		if p.IsEmpty() {
			out = tasks[i]
			return tasks, false, nil
		}

		t := &tasks[i]
		wasCompleted := t.Completed
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Completed != nil {
			t.Completed = *p.Completed
			switch {
			case t.Completed && !wasCompleted:
				now := s.stamp()
				t.CompletedAt = &now
			case !t.Completed && wasCompleted:
				t.CompletedAt = nil
			}
		}
		out = *t
		changed = true
		return tasks, true, nil
	})
	if err != nil {
		return dom.Task{}, err
	}
	if changed {
		s.gen.Add(1)
	}
	return out, nil
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.store.Mutate(func(tasks []dom.Task) ([]dom.Task, bool, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		return append(tasks[:i], tasks[i+1:]...), true, nil
	})
	if err != nil {
		return err
	}
	s.gen.Add(1)
	return nil
}

// load coalesces concurrent reads. The key includes the write generation so
// a read issued after a write has returned never shares an older load.
func (s *TaskService) load() ([]dom.Task, error) {
	key := "load:" + strconv.FormatUint(s.gen.Load(), 10)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.store.Load()
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

func (s *TaskService) stamp() time.Time {
	return dom.Timestamp(s.now())
}

func filterTasks(tasks []dom.Task, f dom.TaskFilter) []dom.Task {
	q := strings.ToLower(f.Query)
	out := make([]dom.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func nextID(tasks []dom.Task) int64 {
	var maxID int64
	for _, t := range tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

func indexOf(tasks []dom.Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func validatePatch(p dom.TaskPatch) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		return validateDescription(*p.Description)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return &ValidationError{Field: "title", Reason: "must be at most " + strconv.Itoa(MaxTitleLen) + " characters"}
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "must be at most " + strconv.Itoa(MaxDescriptionLen) + " characters"}
	}
	return nil
}
