package engine

import (
	"context"
	"errors"
	"fmt"

	"gigboard/internal/domain"
	"gigboard/internal/events"
	"gigboard/internal/repo"
)

// RatingOptions are parameters for submitting a rating. RevieweeID is
// optional; when set it must match the counterparty derived from the project.
type RatingOptions struct {
	ProjectID          int64
	ReviewerID         int64
	RevieweeID         *int64
	Score              int
	Comment            string
	QualityScore       *int
	CommunicationScore *int
	DeadlineScore      *int
}

// SubmitRating records a rating on a completed project. Owner rates the
// assignee, the assignee rates the owner; one rating per reviewer per
// project. The reviewee's aggregate score is recomputed from the full rating
// history inside the same transaction.
func (e Engine) SubmitRating(ctx context.Context, opts RatingOptions) (domain.Rating, error) {
	if opts.Score < 1 || opts.Score > 5 {
		return domain.Rating{}, ArgumentError{Reason: "score must be between 1 and 5"}
	}
	for _, sub := range []*int{opts.QualityScore, opts.CommunicationScore, opts.DeadlineScore} {
		if sub != nil && (*sub < 1 || *sub > 5) {
			return domain.Rating{}, ArgumentError{Reason: "sub-scores must be between 1 and 5"}
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Rating{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Rating{}, err
	}
	if _, err := e.requireActiveUser(ctx, tx, opts.ReviewerID); err != nil {
		return domain.Rating{}, err
	}
	if p.Status != domain.ProjectCompleted {
		return domain.Rating{}, StateError{Entity: "project", Status: p.Status, Op: "be rated"}
	}
	if p.AssigneeID == nil {
		return domain.Rating{}, ArgumentError{Reason: "project has no assigned worker"}
	}
	var revieweeID int64
	switch opts.ReviewerID {
	case p.OwnerID:
		revieweeID = *p.AssigneeID
	case *p.AssigneeID:
		revieweeID = p.OwnerID
	default:
		return domain.Rating{}, ForbiddenError{Reason: "only the project owner or assignee can rate"}
	}
	if opts.RevieweeID != nil && *opts.RevieweeID != revieweeID {
		return domain.Rating{}, ArgumentError{Reason: fmt.Sprintf("reviewee %d is not the counterparty on project %d", *opts.RevieweeID, p.ID)}
	}
	if _, err := e.Repo.GetRatingByReviewerTx(ctx, tx, p.ID, opts.ReviewerID); err == nil {
		return domain.Rating{}, ConflictError{Reason: fmt.Sprintf("reviewer %d already rated project %d", opts.ReviewerID, p.ID)}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Rating{}, err
	}
	rt := domain.Rating{
		ProjectID:          p.ID,
		ReviewerID:         opts.ReviewerID,
		RevieweeID:         revieweeID,
		Score:              opts.Score,
		Comment:            opts.Comment,
		QualityScore:       opts.QualityScore,
		CommunicationScore: opts.CommunicationScore,
		DeadlineScore:      opts.DeadlineScore,
		CreatedAt:          e.nowString(),
	}
	id, err := e.Repo.InsertRating(ctx, tx, rt)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("insert rating: %w", err)
	}
	rt.ID = id

	reviewee, err := e.Repo.GetUserTx(ctx, tx, revieweeID)
	if err != nil {
		return rt, err
	}
	avg, err := e.Repo.AverageScoreTx(ctx, tx, revieweeID)
	if err != nil {
		return rt, err
	}
	reviewee.RatingScore = avg
	if opts.ReviewerID == p.OwnerID {
		reviewee.CompletedProjects++
	}
	reviewee.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateUserTx(ctx, tx, reviewee); err != nil {
		return rt, err
	}
	if err := e.Events.Append(ctx, tx, "rating.submitted", p.ID, "rating", entityID(rt.ID), opts.ReviewerID, events.EventPayload{"score": rt.Score, "reviewee_id": revieweeID}); err != nil {
		return rt, err
	}
	if err := tx.Commit(); err != nil {
		return rt, err
	}
	return rt, nil
}
