package engine

import (
	"context"
	"fmt"

	"gigboard/internal/domain"
	"gigboard/internal/events"
)

// SignContract records one party's signature. A draft contract moves to
// pending_signature on the first signature and to active once both parties
// have signed.
func (e Engine) SignContract(ctx context.Context, contractID, callerID int64) (domain.Contract, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contract{}, err
	}
	defer tx.Rollback()

	c, err := e.Repo.GetContractTx(ctx, tx, contractID)
	if err != nil {
		return c, err
	}
	if _, err := e.requireActiveUser(ctx, tx, callerID); err != nil {
		return c, err
	}
	if callerID != c.RequesterID && callerID != c.WorkerID {
		return c, ForbiddenError{Reason: "only a contract party can sign it"}
	}
	if c.Status != domain.ContractDraft && c.Status != domain.ContractPendingSignature {
		return c, StateError{Entity: "contract", Status: c.Status, Op: "be signed"}
	}
	now := e.nowString()
	switch callerID {
	case c.RequesterID:
		if c.RequesterSignedAt != nil {
			return c, ConflictError{Reason: "requester already signed"}
		}
		c.RequesterSignedAt = &now
	case c.WorkerID:
		if c.WorkerSignedAt != nil {
			return c, ConflictError{Reason: "worker already signed"}
		}
		c.WorkerSignedAt = &now
	}
	if c.Signed() {
		c.Status = domain.ContractActive
	} else {
		c.Status = domain.ContractPendingSignature
	}
	if err := e.Repo.UpdateContractTx(ctx, tx, c); err != nil {
		return c, err
	}
	evt := "contract.signed"
	if c.Status == domain.ContractActive {
		evt = "contract.activated"
	}
	if err := e.Events.Append(ctx, tx, evt, c.ProjectID, "contract", entityID(c.ID), callerID, events.EventPayload{"status": c.Status}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// SetContractStatus is the operator override for the contract machine. It is
// the only path into disputed and back out of it.
func (e Engine) SetContractStatus(ctx context.Context, contractID int64, status string, callerID int64) (domain.Contract, error) {
	switch status {
	case domain.ContractActive, domain.ContractCompleted, domain.ContractCancelled, domain.ContractDisputed:
	default:
		return domain.Contract{}, ArgumentError{Reason: fmt.Sprintf("cannot force contract status %q", status)}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contract{}, err
	}
	defer tx.Rollback()

	caller, err := e.requireActiveUser(ctx, tx, callerID)
	if err != nil {
		return domain.Contract{}, err
	}
	if caller.Role != domain.RoleOperator {
		return domain.Contract{}, ForbiddenError{Reason: "only operators can override contract status"}
	}
	c, err := e.Repo.GetContractTx(ctx, tx, contractID)
	if err != nil {
		return c, err
	}
	if c.Status == status {
		return c, ConflictError{Reason: fmt.Sprintf("contract %d already %s", c.ID, status)}
	}
	if c.Status == domain.ContractCompleted || c.Status == domain.ContractCancelled {
		return c, StateError{Entity: "contract", Status: c.Status, Op: "change status"}
	}
	c.Status = status
	if status == domain.ContractCompleted && c.CompletedAt == nil {
		now := e.nowString()
		c.CompletedAt = &now
	}
	if err := e.Repo.UpdateContractTx(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "contract."+status, c.ProjectID, "contract", entityID(c.ID), callerID, events.EventPayload{"status": c.Status, "forced": true}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}
