package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gigboard/internal/config"
	"gigboard/internal/db"
	"gigboard/internal/domain"
	"gigboard/internal/engine"
	"gigboard/internal/migrate"
	"gigboard/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func registerUser(t *testing.T, env testEnv, email, role string) domain.User {
	t.Helper()
	u, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterOptions{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func openProject(t *testing.T, env testEnv, owner domain.User, budget float64) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		OwnerID:     owner.ID,
		Title:       "Build a landing page",
		Description: "Responsive marketing site",
		Budget:      budget,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	p, err = env.Engine.PublishProject(env.Ctx, p.ID, owner.ID)
	if err != nil {
		t.Fatalf("publish project: %v", err)
	}
	return p
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)

	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		OwnerID:     requester.ID,
		Title:       "Build a landing page",
		Description: "Responsive marketing site",
		Budget:      1000,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.Status != domain.ProjectDraft {
		t.Fatalf("expected draft, got %s", p.Status)
	}

	p, err = env.Engine.PublishProject(env.Ctx, p.ID, requester.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.Status != domain.ProjectOpen {
		t.Fatalf("expected open, got %s", p.Status)
	}

	rate := 800.0
	app, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{
		ProjectID:    p.ID,
		WorkerID:     worker.ID,
		CoverLetter:  "I can do this",
		ProposedRate: &rate,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	app, err = env.Engine.DecideApplication(env.Ctx, p.ID, app.ID, requester.ID, true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if app.Status != domain.ApplicationAccepted {
		t.Fatalf("expected accepted, got %s", app.Status)
	}

	p, err = env.Engine.Repo.GetProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if p.Status != domain.ProjectInProgress {
		t.Fatalf("expected in_progress, got %s", p.Status)
	}
	if p.AssigneeID == nil || *p.AssigneeID != worker.ID {
		t.Fatalf("expected assignee %d, got %v", worker.ID, p.AssigneeID)
	}

	// Acceptance derives a draft contract from the proposed rate.
	c, err := env.Engine.Repo.GetContractByProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}
	if c.Status != domain.ContractDraft {
		t.Fatalf("expected draft contract, got %s", c.Status)
	}
	if c.TotalAmount != 800 {
		t.Fatalf("expected total 800, got %v", c.TotalAmount)
	}
	wantFee := 800 * 0.15
	if c.PlatformFee != wantFee {
		t.Fatalf("expected fee %v, got %v", wantFee, c.PlatformFee)
	}
	if c.WorkerPayment != 800-wantFee {
		t.Fatalf("expected payment %v, got %v", 800-wantFee, c.WorkerPayment)
	}

	c, err = env.Engine.SignContract(env.Ctx, c.ID, requester.ID)
	if err != nil {
		t.Fatalf("requester sign: %v", err)
	}
	if c.Status != domain.ContractPendingSignature {
		t.Fatalf("expected pending_signature, got %s", c.Status)
	}
	c, err = env.Engine.SignContract(env.Ctx, c.ID, worker.ID)
	if err != nil {
		t.Fatalf("worker sign: %v", err)
	}
	if c.Status != domain.ContractActive {
		t.Fatalf("expected active, got %s", c.Status)
	}

	p, err = env.Engine.RequestReview(env.Ctx, p.ID, worker.ID)
	if err != nil {
		t.Fatalf("request review: %v", err)
	}
	if p.Status != domain.ProjectReview {
		t.Fatalf("expected review, got %s", p.Status)
	}

	p, err = env.Engine.CompleteProject(env.Ctx, p.ID, requester.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.Status != domain.ProjectCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}

	c, err = env.Engine.Repo.GetContract(env.Ctx, c.ID)
	if err != nil {
		t.Fatalf("reload contract: %v", err)
	}
	if c.Status != domain.ContractCompleted {
		t.Fatalf("expected contract completed, got %s", c.Status)
	}
	if c.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	// Both sides rate; only the owner's rating bumps completed_projects.
	if _, err := env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{
		ProjectID:  p.ID,
		ReviewerID: requester.ID,
		Score:      5,
		Comment:    "great work",
	}); err != nil {
		t.Fatalf("owner rating: %v", err)
	}
	if _, err := env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{
		ProjectID:  p.ID,
		ReviewerID: worker.ID,
		Score:      4,
	}); err != nil {
		t.Fatalf("worker rating: %v", err)
	}

	worker, err = env.Engine.Repo.GetUser(env.Ctx, worker.ID)
	if err != nil {
		t.Fatalf("reload worker: %v", err)
	}
	if worker.RatingScore != 5 {
		t.Fatalf("expected worker score 5, got %v", worker.RatingScore)
	}
	if worker.CompletedProjects != 1 {
		t.Fatalf("expected 1 completed project, got %d", worker.CompletedProjects)
	}
	requester, err = env.Engine.Repo.GetUser(env.Ctx, requester.ID)
	if err != nil {
		t.Fatalf("reload requester: %v", err)
	}
	if requester.RatingScore != 4 {
		t.Fatalf("expected requester score 4, got %v", requester.RatingScore)
	}
	if requester.CompletedProjects != 0 {
		t.Fatalf("requester completed count should not change, got %d", requester.CompletedProjects)
	}
}

func TestWorkerCannotCreateProject(t *testing.T) {
	env := newTestEnv(t)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	_, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		OwnerID:     worker.ID,
		Title:       "Nope",
		Description: "workers do not post projects",
		Budget:      100,
	})
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "dup@example.com", domain.RoleWorker)
	_, err := env.Engine.RegisterUser(env.Ctx, engine.RegisterOptions{
		Email:     "DUP@example.com",
		FirstName: "Other",
		LastName:  "User",
		Role:      domain.RoleRequester,
	})
	var conflict engine.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestDuplicateApplicationRejected(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	if _, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	var conflict engine.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on second apply, got %v", err)
	}
}

func TestAcceptRejectsOtherPendingApplications(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	p := openProject(t, env, requester, 500)

	var apps []domain.Application
	for i := 0; i < 3; i++ {
		w := registerUser(t, env, fmt.Sprintf("worker%d@example.com", i), domain.RoleWorker)
		a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: w.ID})
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		apps = append(apps, a)
	}

	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, apps[1].ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	all, err := env.Engine.Repo.ListApplications(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("list applications: %v", err)
	}
	for _, a := range all {
		want := domain.ApplicationRejected
		if a.ID == apps[1].ID {
			want = domain.ApplicationAccepted
		}
		if a.Status != want {
			t.Fatalf("application %d: expected %s, got %s", a.ID, want, a.Status)
		}
	}

	// A second decision on the losing application is a conflict.
	_, err = env.Engine.DecideApplication(env.Ctx, p.ID, apps[0].ID, requester.ID, true)
	var conflict engine.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on decided application, got %v", err)
	}
}

func TestAcceptOverridesDirectAssignment(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	assigned := registerUser(t, env, "assigned@example.com", domain.RoleWorker)
	applicant := registerUser(t, env, "applicant@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: applicant.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	p, err = env.Engine.AssignWorker(env.Ctx, p.ID, &assigned.ID, requester.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if p.Status != domain.ProjectInProgress {
		t.Fatalf("expected in_progress, got %s", p.Status)
	}

	// acceptance still works after a direct assignment and wins
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	p, err = env.Engine.Repo.GetProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if p.AssigneeID == nil || *p.AssigneeID != applicant.ID {
		t.Fatalf("expected assignee %d, got %v", applicant.ID, p.AssigneeID)
	}
	if p.Status != domain.ProjectInProgress {
		t.Fatalf("expected in_progress, got %s", p.Status)
	}
}

func TestCompleteGuards(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	// open projects cannot complete
	_, err := env.Engine.CompleteProject(env.Ctx, p.ID, requester.ID)
	var state engine.StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected state error on open project, got %v", err)
	}

	// in_progress without an assignee cannot complete either
	p, err = env.Engine.AssignWorker(env.Ctx, p.ID, &worker.ID, requester.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if p.Status != domain.ProjectInProgress {
		t.Fatalf("expected in_progress after assign, got %s", p.Status)
	}
	if _, err := env.Engine.AssignWorker(env.Ctx, p.ID, nil, requester.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	_, err = env.Engine.CompleteProject(env.Ctx, p.ID, requester.ID)
	var arg engine.ArgumentError
	if !errors.As(err, &arg) {
		t.Fatalf("expected argument error without assignee, got %v", err)
	}

	// non-owners cannot complete
	if _, err := env.Engine.AssignWorker(env.Ctx, p.ID, &worker.ID, requester.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	_, err = env.Engine.CompleteProject(env.Ctx, p.ID, worker.ID)
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for worker, got %v", err)
	}
}

func TestCancelSettlesContract(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	p, err = env.Engine.CancelProject(env.Ctx, p.ID, requester.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p.Status != domain.ProjectCancelled {
		t.Fatalf("expected cancelled, got %s", p.Status)
	}
	c, err := env.Engine.Repo.GetContractByProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}
	if c.Status != domain.ContractCancelled {
		t.Fatalf("expected contract cancelled, got %s", c.Status)
	}

	// cancelled is terminal
	_, err = env.Engine.CancelProject(env.Ctx, p.ID, requester.ID)
	var state engine.StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected state error on second cancel, got %v", err)
	}
}

func TestTaskBoardFlow(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	// only the owner creates tasks
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID:  p.ID,
		CallerID:   worker.ID,
		Title:      "sneaky",
		Complexity: 1,
	})
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for worker, got %v", err)
	}

	first, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID:  p.ID,
		CallerID:   requester.ID,
		Title:      "Design mockups",
		Complexity: 2,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	second, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID:  p.ID,
		CallerID:   requester.ID,
		Title:      "Implement pages",
		Complexity: 3,
	})
	if err != nil {
		t.Fatalf("create second task: %v", err)
	}
	if second.Order != first.Order+1 {
		t.Fatalf("expected order %d, got %d", first.Order+1, second.Order)
	}

	tk, err := env.Engine.AssignTask(env.Ctx, first.ID, &worker.ID, requester.ID)
	if err != nil {
		t.Fatalf("assign task: %v", err)
	}
	if tk.AssigneeID == nil || *tk.AssigneeID != worker.ID {
		t.Fatalf("expected task assignee %d", worker.ID)
	}

	// forward flow with a rework loop out of review
	for _, status := range []string{domain.TaskInProgress, domain.TaskReview, domain.TaskInProgress, domain.TaskReview, domain.TaskCompleted} {
		tk, err = env.Engine.UpdateTaskStatus(env.Ctx, first.ID, status, worker.ID)
		if err != nil {
			t.Fatalf("move to %s: %v", status, err)
		}
	}
	if tk.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", tk.Status)
	}

	// completed tasks do not move
	_, err = env.Engine.UpdateTaskStatus(env.Ctx, first.ID, domain.TaskInProgress, worker.ID)
	var state engine.StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected state error, got %v", err)
	}

	// pending cannot jump straight to completed
	_, err = env.Engine.UpdateTaskStatus(env.Ctx, second.ID, domain.TaskCompleted, requester.ID)
	if !errors.As(err, &state) {
		t.Fatalf("expected state error on skip, got %v", err)
	}
}

func TestRatingGuards(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	bystander := registerUser(t, env, "bystander@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	// not completed yet
	_, err := env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: p.ID, ReviewerID: requester.ID, Score: 5})
	var state engine.StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected state error before completion, got %v", err)
	}

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.Engine.CompleteProject(env.Ctx, p.ID, requester.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: p.ID, ReviewerID: bystander.ID, Score: 3})
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for bystander, got %v", err)
	}

	// a supplied reviewee must be the counterparty
	_, err = env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: p.ID, ReviewerID: requester.ID, RevieweeID: &bystander.ID, Score: 4})
	var arg engine.ArgumentError
	if !errors.As(err, &arg) {
		t.Fatalf("expected argument error for wrong reviewee, got %v", err)
	}

	if _, err := env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: p.ID, ReviewerID: requester.ID, RevieweeID: &worker.ID, Score: 4}); err != nil {
		t.Fatalf("rating: %v", err)
	}
	_, err = env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: p.ID, ReviewerID: requester.ID, Score: 2})
	var conflict engine.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on second rating, got %v", err)
	}
}

func TestRatingAverageAcrossProjects(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)

	scores := []int{5, 2}
	for i, score := range scores {
		p := openProject(t, env, requester, 300)
		a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
		if err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
			t.Fatalf("accept %d: %v", i, err)
		}
		if _, err := env.Engine.CompleteProject(env.Ctx, p.ID, requester.ID); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
		if _, err := env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: p.ID, ReviewerID: requester.ID, Score: score}); err != nil {
			t.Fatalf("rate %d: %v", i, err)
		}
	}

	worker, err := env.Engine.Repo.GetUser(env.Ctx, worker.ID)
	if err != nil {
		t.Fatalf("reload worker: %v", err)
	}
	if worker.RatingScore != 3.5 {
		t.Fatalf("expected average 3.5, got %v", worker.RatingScore)
	}
	if worker.CompletedProjects != 2 {
		t.Fatalf("expected 2 completed projects, got %d", worker.CompletedProjects)
	}
}

func TestDeactivatedUserBlocked(t *testing.T) {
	env := newTestEnv(t)
	operator := registerUser(t, env, "ops@example.com", domain.RoleOperator)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	p := openProject(t, env, requester, 500)

	if _, err := env.Engine.DeactivateUser(env.Ctx, worker.ID, operator.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for deactivated worker, got %v", err)
	}

	// workers cannot deactivate anyone
	_, err = env.Engine.DeactivateUser(env.Ctx, operator.ID, requester.ID)
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for non-operator, got %v", err)
	}

	// repeated deactivation is a conflict
	_, err = env.Engine.DeactivateUser(env.Ctx, worker.ID, operator.ID)
	var conflict engine.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeactivatedOwnerBlocked(t *testing.T) {
	env := newTestEnv(t)
	operator := registerUser(t, env, "ops@example.com", domain.RoleOperator)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)

	done := openProject(t, env, requester, 500)
	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: done.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, done.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.Engine.CompleteProject(env.Ctx, done.ID, requester.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	pending := openProject(t, env, requester, 500)
	a2, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: pending.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if _, err := env.Engine.DeactivateUser(env.Ctx, requester.ID, operator.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// a deactivated owner cannot keep driving the workflow
	var forbidden engine.ForbiddenError
	_, err = env.Engine.DecideApplication(env.Ctx, pending.ID, a2.ID, requester.ID, true)
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden on decide, got %v", err)
	}
	_, err = env.Engine.CompleteProject(env.Ctx, pending.ID, requester.ID)
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden on complete, got %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID:  pending.ID,
		CallerID:   requester.ID,
		Title:      "late task",
		Complexity: 1,
	})
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden on create task, got %v", err)
	}
	_, err = env.Engine.SubmitRating(env.Ctx, engine.RatingOptions{ProjectID: done.ID, ReviewerID: requester.ID, Score: 5})
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden on rating, got %v", err)
	}
}

func TestDecideApplicationScopedToProject(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)
	other := openProject(t, env, requester, 500)

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	_, err = env.Engine.DecideApplication(env.Ctx, other.ID, a.ID, requester.ID, true)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for wrong project, got %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("decide in scope: %v", err)
	}
}

func TestContractSigningGuards(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	stranger := registerUser(t, env, "stranger@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	c, err := env.Engine.Repo.GetContractByProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}

	_, err = env.Engine.SignContract(env.Ctx, c.ID, stranger.ID)
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	if _, err := env.Engine.SignContract(env.Ctx, c.ID, worker.ID); err != nil {
		t.Fatalf("worker sign: %v", err)
	}
	_, err = env.Engine.SignContract(env.Ctx, c.ID, worker.ID)
	var conflict engine.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on double sign, got %v", err)
	}
}

func TestOperatorContractOverride(t *testing.T) {
	env := newTestEnv(t)
	operator := registerUser(t, env, "ops@example.com", domain.RoleOperator)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	c, err := env.Engine.Repo.GetContractByProject(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("load contract: %v", err)
	}

	_, err = env.Engine.SetContractStatus(env.Ctx, c.ID, domain.ContractDisputed, requester.ID)
	var forbidden engine.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected forbidden for requester, got %v", err)
	}

	c, err = env.Engine.SetContractStatus(env.Ctx, c.ID, domain.ContractDisputed, operator.ID)
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if c.Status != domain.ContractDisputed {
		t.Fatalf("expected disputed, got %s", c.Status)
	}

	// disputed contracts can be resolved back out
	c, err = env.Engine.SetContractStatus(env.Ctx, c.ID, domain.ContractCompleted, operator.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.CompletedAt == nil {
		t.Fatalf("expected completed_at on resolution")
	}

	// terminal contracts are frozen
	_, err = env.Engine.SetContractStatus(env.Ctx, c.ID, domain.ContractActive, operator.ID)
	var state engine.StateError
	if !errors.As(err, &state) {
		t.Fatalf("expected state error on terminal contract, got %v", err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	requester := registerUser(t, env, "owner@example.com", domain.RoleRequester)
	worker := registerUser(t, env, "worker@example.com", domain.RoleWorker)
	p := openProject(t, env, requester, 500)

	a, err := env.Engine.Apply(env.Ctx, engine.ApplyOptions{ProjectID: p.ID, WorkerID: worker.ID})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := env.Engine.DecideApplication(env.Ctx, p.ID, a.ID, requester.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, p.ID, "", "", "")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	seen := map[string]bool{}
	for _, evt := range evts {
		seen[evt.Type] = true
	}
	for _, want := range []string{"project.created", "project.published", "application.submitted", "application.accepted", "contract.drafted"} {
		if !seen[want] {
			t.Fatalf("missing event %s in %v", want, evts)
		}
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "owner@example.com", domain.RoleRequester)
	_, err := env.Engine.PublishProject(env.Ctx, 999, 1)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
