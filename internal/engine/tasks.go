package engine

import (
	"context"
	"fmt"

	"gigboard/internal/domain"
	"gigboard/internal/events"
)

// TaskCreateOptions are parameters for adding a task to a project board.
type TaskCreateOptions struct {
	ProjectID      int64
	CallerID       int64
	Title          string
	Description    string
	Complexity     int
	EstimatedHours *int
	Deadline       *string
}

// CreateTask appends a task to the project board. Owner only; the board
// position is assigned inside the insert transaction.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, ArgumentError{Reason: "title is required"}
	}
	if opts.Complexity < 1 || opts.Complexity > 5 {
		return domain.Task{}, ArgumentError{Reason: "complexity must be between 1 and 5"}
	}
	if opts.EstimatedHours != nil && *opts.EstimatedHours <= 0 {
		return domain.Task{}, ArgumentError{Reason: "estimated hours must be positive"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.requireActiveUser(ctx, tx, opts.CallerID); err != nil {
		return domain.Task{}, err
	}
	if p.OwnerID != opts.CallerID {
		return domain.Task{}, ForbiddenError{Reason: "only the project owner can create tasks"}
	}
	if p.Terminal() {
		return domain.Task{}, StateError{Entity: "project", Status: p.Status, Op: "receive tasks"}
	}
	ord, err := e.Repo.NextTaskOrder(ctx, tx, p.ID)
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		ProjectID:      p.ID,
		Title:          opts.Title,
		Description:    opts.Description,
		Complexity:     opts.Complexity,
		EstimatedHours: opts.EstimatedHours,
		Deadline:       opts.Deadline,
		Status:         domain.TaskPending,
		Order:          ord,
		CreatedAt:      e.nowString(),
	}
	id, err := e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	if err := e.Events.Append(ctx, tx, "task.created", p.ID, "task", entityID(t.ID), opts.CallerID, events.EventPayload{"ord": t.Order, "title": t.Title}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// AssignTask sets or clears the task assignee. Owner only.
func (e Engine) AssignTask(ctx context.Context, taskID int64, workerID *int64, callerID int64) (domain.Task, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return t, err
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, t.ProjectID)
	if err != nil {
		return t, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return t, err
	}
	if p.OwnerID != callerID {
		return t, ForbiddenError{Reason: "only the project owner can assign tasks"}
	}
	evt := "task.unassigned"
	payload := events.EventPayload{}
	if workerID == nil {
		t.AssigneeID = nil
	} else {
		worker, err := e.requireActiveUser(ctx, tx, *workerID)
		if err != nil {
			return t, err
		}
		if worker.Role != domain.RoleWorker {
			return t, ArgumentError{Reason: "assignee must have the worker role"}
		}
		t.AssigneeID = workerID
		evt = "task.assigned"
		payload["worker_id"] = worker.ID
	}
	if err := e.Repo.UpdateTaskTx(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, evt, p.ID, "task", entityID(t.ID), callerID, payload); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

// taskTransitions holds the forward steps of the board flow. review also
// allows stepping back to in_progress for rework.
var taskTransitions = map[string][]string{
	domain.TaskPending:    {domain.TaskInProgress},
	domain.TaskInProgress: {domain.TaskReview},
	domain.TaskReview:     {domain.TaskCompleted, domain.TaskInProgress},
}

func ensureTaskTransition(from, to string) error {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return StateError{Entity: "task", Status: from, Op: "move to " + to}
}

// UpdateTaskStatus steps a task through the board flow. Project owner or
// the task assignee.
func (e Engine) UpdateTaskStatus(ctx context.Context, taskID int64, status string, callerID int64) (domain.Task, error) {
	switch status {
	case domain.TaskPending, domain.TaskInProgress, domain.TaskReview, domain.TaskCompleted:
	default:
		return domain.Task{}, ArgumentError{Reason: fmt.Sprintf("unknown task status %q", status)}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		return t, err
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, t.ProjectID)
	if err != nil {
		return t, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return t, err
	}
	allowed := p.OwnerID == callerID ||
		(t.AssigneeID != nil && *t.AssigneeID == callerID) ||
		(p.AssigneeID != nil && *p.AssigneeID == callerID)
	if !allowed {
		return t, ForbiddenError{Reason: "only the project owner or assignee can move tasks"}
	}
	if err := ensureTaskTransition(t.Status, status); err != nil {
		return t, err
	}
	t.Status = status
	if err := e.Repo.UpdateTaskTx(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "task."+status, p.ID, "task", entityID(t.ID), callerID, events.EventPayload{"status": t.Status}); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}
