package engine

import (
	"context"
	"errors"
	"fmt"

	"gigboard/internal/domain"
	"gigboard/internal/events"
	"gigboard/internal/repo"
)

// ApplyOptions are parameters for a worker applying to a project.
type ApplyOptions struct {
	ProjectID    int64
	WorkerID     int64
	CoverLetter  string
	ProposedRate *float64
}

// Apply records a worker's application on an open project. One application
// per worker per project.
func (e Engine) Apply(ctx context.Context, opts ApplyOptions) (domain.Application, error) {
	if opts.ProposedRate != nil && *opts.ProposedRate <= 0 {
		return domain.Application{}, ArgumentError{Reason: "proposed rate must be positive"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Application{}, err
	}
	defer tx.Rollback()

	worker, err := e.requireActiveUser(ctx, tx, opts.WorkerID)
	if err != nil {
		return domain.Application{}, err
	}
	if worker.Role != domain.RoleWorker {
		return domain.Application{}, ForbiddenError{Reason: "only workers can apply to projects"}
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Application{}, err
	}
	if p.Status != domain.ProjectOpen {
		return domain.Application{}, StateError{Entity: "project", Status: p.Status, Op: "accept applications"}
	}
	if _, err := e.Repo.GetApplicationByWorkerTx(ctx, tx, p.ID, worker.ID); err == nil {
		return domain.Application{}, ConflictError{Reason: fmt.Sprintf("worker %d already applied to project %d", worker.ID, p.ID)}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Application{}, err
	}
	a := domain.Application{
		ProjectID:    p.ID,
		WorkerID:     worker.ID,
		CoverLetter:  opts.CoverLetter,
		ProposedRate: opts.ProposedRate,
		Status:       domain.ApplicationPending,
		CreatedAt:    e.nowString(),
	}
	id, err := e.Repo.InsertApplication(ctx, tx, a)
	if err != nil {
		return domain.Application{}, fmt.Errorf("insert application: %w", err)
	}
	a.ID = id
	if err := e.Events.Append(ctx, tx, "application.submitted", p.ID, "application", entityID(a.ID), worker.ID, events.EventPayload{"worker_id": worker.ID}); err != nil {
		return domain.Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Application{}, err
	}
	return a, nil
}

// DecideApplication accepts or rejects a pending application. Owner only;
// the application must belong to the given project. Acceptance assigns the
// applicant, moves the project to in_progress, rejects the remaining pending
// applications and derives a draft contract.
func (e Engine) DecideApplication(ctx context.Context, projectID, applicationID, callerID int64, accept bool) (domain.Application, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Application{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetApplicationTx(ctx, tx, applicationID)
	if err != nil {
		return a, err
	}
	if a.ProjectID != projectID {
		return domain.Application{}, repo.ErrNotFound
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, a.ProjectID)
	if err != nil {
		return a, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return a, err
	}
	if p.OwnerID != callerID {
		return a, ForbiddenError{Reason: "only the project owner can decide applications"}
	}
	if a.Status != domain.ApplicationPending {
		return a, ConflictError{Reason: fmt.Sprintf("application %d already %s", a.ID, a.Status)}
	}
	if !accept {
		a.Status = domain.ApplicationRejected
		if err := e.Repo.UpdateApplicationStatusTx(ctx, tx, a.ID, a.Status); err != nil {
			return a, err
		}
		if err := e.Events.Append(ctx, tx, "application.rejected", p.ID, "application", entityID(a.ID), callerID, events.EventPayload{"worker_id": a.WorkerID}); err != nil {
			return a, err
		}
		if err := tx.Commit(); err != nil {
			return a, err
		}
		return a, nil
	}
	if p.Terminal() {
		return a, StateError{Entity: "project", Status: p.Status, Op: "accept an application"}
	}
	worker, err := e.requireActiveUser(ctx, tx, a.WorkerID)
	if err != nil {
		return a, err
	}
	a.Status = domain.ApplicationAccepted
	if err := e.Repo.UpdateApplicationStatusTx(ctx, tx, a.ID, a.Status); err != nil {
		return a, err
	}
	others, err := e.Repo.ListApplicationsTx(ctx, tx, p.ID)
	if err != nil {
		return a, err
	}
	for _, o := range others {
		if o.ID == a.ID || o.Status != domain.ApplicationPending {
			continue
		}
		if err := e.Repo.UpdateApplicationStatusTx(ctx, tx, o.ID, domain.ApplicationRejected); err != nil {
			return a, err
		}
	}
	p.AssigneeID = &worker.ID
	p.Status = domain.ProjectInProgress
	p.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateProjectTx(ctx, tx, p); err != nil {
		return a, err
	}
	c, err := e.draftContract(p, a, worker)
	if err != nil {
		return a, err
	}
	cid, err := e.Repo.InsertContract(ctx, tx, c)
	if err != nil {
		return a, fmt.Errorf("insert contract: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "application.accepted", p.ID, "application", entityID(a.ID), callerID, events.EventPayload{"worker_id": worker.ID}); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "contract.drafted", p.ID, "contract", entityID(cid), callerID, events.EventPayload{"total_amount": c.TotalAmount}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

// draftContract derives contract economics from the accepted application.
func (e Engine) draftContract(p domain.Project, a domain.Application, worker domain.User) (domain.Contract, error) {
	total := p.Budget
	if a.ProposedRate != nil {
		total = *a.ProposedRate
	}
	if total <= 0 {
		return domain.Contract{}, ArgumentError{Reason: "contract amount must be positive"}
	}
	rate := e.Config.Fees.PlatformRate
	fee := total * rate
	return domain.Contract{
		ProjectID:     p.ID,
		RequesterID:   p.OwnerID,
		WorkerID:      worker.ID,
		TotalAmount:   total,
		PlatformFee:   fee,
		WorkerPayment: total - fee,
		Terms:         fmt.Sprintf(e.Config.Contracts.TermsTemplate, p.Title),
		Status:        domain.ContractDraft,
		CreatedAt:     e.nowString(),
	}, nil
}
