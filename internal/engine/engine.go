package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gigboard/internal/config"
	"gigboard/internal/domain"
	"gigboard/internal/events"
	"gigboard/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// requireActiveUser loads a user inside the operation transaction and rejects
// deactivated accounts.
func (e Engine) requireActiveUser(ctx context.Context, tx *sql.Tx, id int64) (domain.User, error) {
	u, err := e.Repo.GetUserTx(ctx, tx, id)
	if err != nil {
		return u, err
	}
	if !u.Active {
		return u, ForbiddenError{Reason: fmt.Sprintf("user %d is deactivated", id)}
	}
	switch u.Role {
	case domain.RoleWorker, domain.RoleRequester, domain.RoleOperator:
	default:
		// Unknown role is a data-integrity fault, not a guard failure.
		return u, fmt.Errorf("user %d has unknown role %q", id, u.Role)
	}
	return u, nil
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	OwnerID       int64
	Title         string
	Description   string
	Requirements  string
	Budget        float64
	Deadline      *string
	TechStack     []string
	GeneratedSpec string
	LLMEstimation string
}

// CreateProject creates a draft project owned by a requester.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Title == "" {
		return domain.Project{}, ArgumentError{Reason: "title is required"}
	}
	if opts.Description == "" {
		return domain.Project{}, ArgumentError{Reason: "description is required"}
	}
	if opts.Budget <= 0 {
		return domain.Project{}, ArgumentError{Reason: "budget must be positive"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	owner, err := e.requireActiveUser(ctx, tx, opts.OwnerID)
	if err != nil {
		return domain.Project{}, err
	}
	if owner.Role != domain.RoleRequester {
		return domain.Project{}, ForbiddenError{Reason: "only requesters can create projects"}
	}
	now := e.nowString()
	p := domain.Project{
		Title:         opts.Title,
		Description:   opts.Description,
		Requirements:  opts.Requirements,
		Budget:        opts.Budget,
		Deadline:      opts.Deadline,
		TechStack:     opts.TechStack,
		Status:        domain.ProjectDraft,
		OwnerID:       owner.ID,
		GeneratedSpec: opts.GeneratedSpec,
		LLMEstimation: opts.LLMEstimation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := e.Repo.InsertProject(ctx, tx, p)
	if err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	p.ID = id
	if err := e.Events.Append(ctx, tx, "project.created", p.ID, "project", entityID(p.ID), owner.ID, events.EventPayload{"status": p.Status, "title": p.Title}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectUpdateOptions carries the fields legally mutable while the project
// is draft or open. Nil fields are left unchanged.
type ProjectUpdateOptions struct {
	ID            int64
	CallerID      int64
	Title         *string
	Description   *string
	Requirements  *string
	Budget        *float64
	Deadline      *string
	SetTechStack  bool
	TechStack     []string
	GeneratedSpec *string
	LLMEstimation *string
}

// UpdateProject edits project fields. Owner only, draft/open only.
func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ID)
	if err != nil {
		return p, err
	}
	if _, err := e.requireActiveUser(ctx, tx, opts.CallerID); err != nil {
		return p, err
	}
	if p.OwnerID != opts.CallerID {
		return p, ForbiddenError{Reason: "only the project owner can edit it"}
	}
	if p.Status != domain.ProjectDraft && p.Status != domain.ProjectOpen {
		return p, StateError{Entity: "project", Status: p.Status, Op: "be edited"}
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return p, ArgumentError{Reason: "title cannot be empty"}
		}
		p.Title = *opts.Title
	}
	if opts.Description != nil {
		if *opts.Description == "" {
			return p, ArgumentError{Reason: "description cannot be empty"}
		}
		p.Description = *opts.Description
	}
	if opts.Requirements != nil {
		p.Requirements = *opts.Requirements
	}
	if opts.Budget != nil {
		if *opts.Budget <= 0 {
			return p, ArgumentError{Reason: "budget must be positive"}
		}
		p.Budget = *opts.Budget
	}
	if opts.Deadline != nil {
		if *opts.Deadline == "" {
			p.Deadline = nil
		} else {
			p.Deadline = opts.Deadline
		}
	}
	if opts.SetTechStack {
		p.TechStack = opts.TechStack
	}
	if opts.GeneratedSpec != nil {
		p.GeneratedSpec = *opts.GeneratedSpec
	}
	if opts.LLMEstimation != nil {
		p.LLMEstimation = *opts.LLMEstimation
	}
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "project.updated", p.ID, "project", entityID(p.ID), opts.CallerID, events.EventPayload{"status": p.Status}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// PublishProject moves a draft project to open.
func (e Engine) PublishProject(ctx context.Context, projectID, callerID int64) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return p, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return p, err
	}
	if p.OwnerID != callerID {
		return p, ForbiddenError{Reason: "only the project owner can publish it"}
	}
	if p.Status != domain.ProjectDraft {
		return p, StateError{Entity: "project", Status: p.Status, Op: "be published"}
	}
	p.Status = domain.ProjectOpen
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "project.published", p.ID, "project", entityID(p.ID), callerID, events.EventPayload{"status": p.Status}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// AssignWorker sets or clears the project assignee. Assigning to an open
// project moves it to in_progress; unassigning never changes status.
func (e Engine) AssignWorker(ctx context.Context, projectID int64, workerID *int64, callerID int64) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return p, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return p, err
	}
	if p.OwnerID != callerID {
		return p, ForbiddenError{Reason: "only the project owner can assign workers"}
	}
	evt := "project.unassigned"
	payload := events.EventPayload{}
	if workerID == nil {
		p.AssigneeID = nil
	} else {
		worker, err := e.requireActiveUser(ctx, tx, *workerID)
		if err != nil {
			return p, err
		}
		if worker.Role != domain.RoleWorker {
			return p, ArgumentError{Reason: "assignee must have the worker role"}
		}
		p.AssigneeID = workerID
		if p.Status == domain.ProjectOpen {
			p.Status = domain.ProjectInProgress
		}
		evt = "project.assigned"
		payload["worker_id"] = worker.ID
	}
	payload["status"] = p.Status
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, evt, p.ID, "project", entityID(p.ID), callerID, payload); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// RequestReview moves an in-progress project to review. Assignee only.
func (e Engine) RequestReview(ctx context.Context, projectID, callerID int64) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return p, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return p, err
	}
	if p.AssigneeID == nil || *p.AssigneeID != callerID {
		return p, ForbiddenError{Reason: "only the assigned worker can request review"}
	}
	if p.Status != domain.ProjectInProgress {
		return p, StateError{Entity: "project", Status: p.Status, Op: "request review"}
	}
	p.Status = domain.ProjectReview
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "project.review_requested", p.ID, "project", entityID(p.ID), callerID, events.EventPayload{"status": p.Status}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// CompleteProject finishes an in-progress or reviewed project. Owner only;
// a project without an assignee cannot complete. An outstanding contract is
// completed alongside.
func (e Engine) CompleteProject(ctx context.Context, projectID, callerID int64) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return p, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return p, err
	}
	if p.OwnerID != callerID {
		return p, ForbiddenError{Reason: "only the project owner can complete it"}
	}
	if p.Status != domain.ProjectInProgress && p.Status != domain.ProjectReview {
		return p, StateError{Entity: "project", Status: p.Status, Op: "be completed"}
	}
	if p.AssigneeID == nil {
		return p, ArgumentError{Reason: "project has no assigned worker"}
	}
	p.Status = domain.ProjectCompleted
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.settleContract(ctx, tx, p.ID, domain.ContractCompleted, callerID); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "project.completed", p.ID, "project", entityID(p.ID), callerID, events.EventPayload{"status": p.Status}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// CancelProject cancels any non-terminal project. Owner or operator.
func (e Engine) CancelProject(ctx context.Context, projectID, callerID int64) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return p, err
	}
	caller, err := e.requireActiveUser(ctx, tx, callerID)
	if err != nil {
		return p, err
	}
	if p.OwnerID != callerID && caller.Role != domain.RoleOperator {
		return p, ForbiddenError{Reason: "only the project owner or an operator can cancel it"}
	}
	if p.Terminal() {
		return p, StateError{Entity: "project", Status: p.Status, Op: "be cancelled"}
	}
	p.Status = domain.ProjectCancelled
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.settleContract(ctx, tx, p.ID, domain.ContractCancelled, callerID); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "project.cancelled", p.ID, "project", entityID(p.ID), callerID, events.EventPayload{"status": p.Status}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// settleContract moves the project's live contract to a terminal status, if
// one exists.
func (e Engine) settleContract(ctx context.Context, tx *sql.Tx, projectID int64, status string, actorID int64) error {
	c, err := e.Repo.LatestContractForProjectTx(ctx, tx, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	switch c.Status {
	case domain.ContractDraft, domain.ContractPendingSignature, domain.ContractActive:
	default:
		return nil
	}
	c.Status = status
	if status == domain.ContractCompleted {
		now := e.nowString()
		c.CompletedAt = &now
	}
	if err := e.Repo.UpdateContractTx(ctx, tx, c); err != nil {
		return err
	}
	return e.Events.Append(ctx, tx, "contract."+status, projectID, "contract", entityID(c.ID), actorID, events.EventPayload{"status": c.Status})
}

func entityID(id int64) string {
	return fmt.Sprintf("%d", id)
}
