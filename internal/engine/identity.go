package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gigboard/internal/domain"
	"gigboard/internal/events"
	"gigboard/internal/repo"
)

// RegisterOptions are parameters for creating a user account.
type RegisterOptions struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
	Bio       string
	Skills    []string
	AvatarURL string
}

// RegisterUser creates an active account. Emails are unique.
func (e Engine) RegisterUser(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ArgumentError{Reason: "a valid email is required"}
	}
	if opts.FirstName == "" || opts.LastName == "" {
		return domain.User{}, ArgumentError{Reason: "first and last name are required"}
	}
	switch opts.Role {
	case domain.RoleWorker, domain.RoleRequester, domain.RoleOperator:
	default:
		return domain.User{}, ArgumentError{Reason: fmt.Sprintf("unknown role %q", opts.Role)}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetUserByEmailTx(ctx, tx, email); err == nil {
		return domain.User{}, ConflictError{Reason: fmt.Sprintf("email %s is already registered", email)}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	now := e.nowString()
	u := domain.User{
		Email:     email,
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Role:      opts.Role,
		Bio:       opts.Bio,
		Skills:    opts.Skills,
		AvatarURL: opts.AvatarURL,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := e.Repo.InsertUser(ctx, tx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	if err := e.Events.Append(ctx, tx, "user.registered", 0, "user", entityID(u.ID), u.ID, events.EventPayload{"role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// ProfileUpdateOptions carries profile fields. Nil fields are left unchanged.
type ProfileUpdateOptions struct {
	UserID    int64
	CallerID  int64
	FirstName *string
	LastName  *string
	Bio       *string
	SetSkills bool
	Skills    []string
	AvatarURL *string
}

// UpdateUserProfile edits profile fields. Self or operator; role, email and
// reputation fields are not editable here.
func (e Engine) UpdateUserProfile(ctx context.Context, opts ProfileUpdateOptions) (domain.User, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	caller, err := e.requireActiveUser(ctx, tx, opts.CallerID)
	if err != nil {
		return domain.User{}, err
	}
	if caller.ID != opts.UserID && caller.Role != domain.RoleOperator {
		return domain.User{}, ForbiddenError{Reason: "only the account owner or an operator can edit a profile"}
	}
	u, err := e.Repo.GetUserTx(ctx, tx, opts.UserID)
	if err != nil {
		return u, err
	}
	if opts.FirstName != nil {
		if *opts.FirstName == "" {
			return u, ArgumentError{Reason: "first name cannot be empty"}
		}
		u.FirstName = *opts.FirstName
	}
	if opts.LastName != nil {
		if *opts.LastName == "" {
			return u, ArgumentError{Reason: "last name cannot be empty"}
		}
		u.LastName = *opts.LastName
	}
	if opts.Bio != nil {
		u.Bio = *opts.Bio
	}
	if opts.SetSkills {
		u.Skills = opts.Skills
	}
	if opts.AvatarURL != nil {
		u.AvatarURL = *opts.AvatarURL
	}
	u.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateUserTx(ctx, tx, u); err != nil {
		return u, err
	}
	if err := e.Events.Append(ctx, tx, "user.updated", 0, "user", entityID(u.ID), caller.ID, events.EventPayload{}); err != nil {
		return u, err
	}
	if err := tx.Commit(); err != nil {
		return u, err
	}
	return u, nil
}

// DeactivateUser disables an account. Operator only. Deactivated users keep
// their history but fail every subsequent actor guard.
func (e Engine) DeactivateUser(ctx context.Context, userID, callerID int64) (domain.User, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	caller, err := e.requireActiveUser(ctx, tx, callerID)
	if err != nil {
		return domain.User{}, err
	}
	if caller.Role != domain.RoleOperator {
		return domain.User{}, ForbiddenError{Reason: "only operators can deactivate accounts"}
	}
	u, err := e.Repo.GetUserTx(ctx, tx, userID)
	if err != nil {
		return u, err
	}
	if !u.Active {
		return u, ConflictError{Reason: fmt.Sprintf("user %d is already deactivated", u.ID)}
	}
	u.Active = false
	u.UpdatedAt = e.nowString()
	if err := e.Repo.UpdateUserTx(ctx, tx, u); err != nil {
		return u, err
	}
	if err := e.Events.Append(ctx, tx, "user.deactivated", 0, "user", entityID(u.ID), caller.ID, events.EventPayload{}); err != nil {
		return u, err
	}
	if err := tx.Commit(); err != nil {
		return u, err
	}
	return u, nil
}
