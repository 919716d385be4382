package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gigboard/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier abstracts *sql.DB and *sql.Tx so guard reads can run inside the
// operation transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// --- projects ---

const projectColumns = `id,title,description,COALESCE(requirements,''),budget,deadline,tech_stack_json,status,owner_id,assignee_id,COALESCE(generated_spec,''),COALESCE(llm_estimation,''),created_at,updated_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var deadline, techStack sql.NullString
	var assignee sql.NullInt64
	err := scan(&p.ID, &p.Title, &p.Description, &p.Requirements, &p.Budget, &deadline, &techStack,
		&p.Status, &p.OwnerID, &assignee, &p.GeneratedSpec, &p.LLMEstimation, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if deadline.Valid {
		p.Deadline = &deadline.String
	}
	if techStack.Valid {
		p.TechStack = decodeStringSlice(techStack.String)
	}
	if assignee.Valid {
		p.AssigneeID = &assignee.Int64
	}
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(title,description,requirements,budget,deadline,tech_stack_json,status,owner_id,assignee_id,generated_spec,llm_estimation,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Title, p.Description, nullable(p.Requirements), p.Budget, nullableStringPtr(p.Deadline),
		encodeStringSlice(p.TechStack), p.Status, p.OwnerID, nullableInt64Ptr(p.AssigneeID),
		nullable(p.GeneratedSpec), nullable(p.LLMEstimation), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	return getProject(ctx, r.DB, id)
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Project, error) {
	return getProject(ctx, tx, id)
}

func getProject(ctx context.Context, q querier, id int64) (domain.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	return scanProject(row.Scan)
}

func (r Repo) UpdateProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET title=?, description=?, requirements=?, budget=?, deadline=?, tech_stack_json=?, status=?, assignee_id=?, generated_spec=?, llm_estimation=?, updated_at=? WHERE id=?`,
		p.Title, p.Description, nullable(p.Requirements), p.Budget, nullableStringPtr(p.Deadline),
		encodeStringSlice(p.TechStack), p.Status, nullableInt64Ptr(p.AssigneeID),
		nullable(p.GeneratedSpec), nullable(p.LLMEstimation), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type ProjectFilters struct {
	Status  string
	OwnerID int64
	Limit   int
	Offset  int
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.OwnerID != 0 {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + projectColumns + ` FROM projects ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	return r.queryProjects(ctx, query, args...)
}

// ListProjectsForWorker returns projects the worker applied to or is assigned to.
func (r Repo) ListProjectsForWorker(ctx context.Context, workerID int64) ([]domain.Project, error) {
	query := `SELECT DISTINCT p.id,p.title,p.description,COALESCE(p.requirements,''),p.budget,p.deadline,p.tech_stack_json,p.status,p.owner_id,p.assignee_id,COALESCE(p.generated_spec,''),COALESCE(p.llm_estimation,''),p.created_at,p.updated_at
FROM projects p
LEFT JOIN applications a ON a.project_id = p.id
WHERE a.worker_id = ? OR p.assignee_id = ?
ORDER BY p.created_at DESC, p.id DESC`
	return r.queryProjects(ctx, query, workerID, workerID)
}

func (r Repo) queryProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// --- tasks ---

const taskColumns = `id,project_id,title,COALESCE(description,''),complexity,estimated_hours,deadline,status,ord,assignee_id,created_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var hours sql.NullInt64
	var deadline sql.NullString
	var assignee sql.NullInt64
	err := scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Complexity, &hours, &deadline, &t.Status, &t.Order, &assignee, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if hours.Valid {
		h := int(hours.Int64)
		t.EstimatedHours = &h
	}
	if deadline.Valid {
		t.Deadline = &deadline.String
	}
	if assignee.Valid {
		t.AssigneeID = &assignee.Int64
	}
	return t, nil
}

// NextTaskOrder returns max(ord)+1 for the project. Must run inside the
// insert transaction so concurrent creations serialize on the store.
func (r Repo) NextTaskOrder(ctx context.Context, tx *sql.Tx, projectID int64) (int, error) {
	var next int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(ord),0)+1 FROM tasks WHERE project_id=?`, projectID).Scan(&next)
	return next, err
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,title,description,complexity,estimated_hours,deadline,status,ord,assignee_id,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ProjectID, t.Title, nullable(t.Description), t.Complexity, nullableIntPtr(t.EstimatedHours),
		nullableStringPtr(t.Deadline), t.Status, t.Order, nullableInt64Ptr(t.AssigneeID), t.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return getTask(ctx, r.DB, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	return getTask(ctx, tx, id)
}

func getTask(ctx context.Context, q querier, id int64) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

func (r Repo) UpdateTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, complexity=?, estimated_hours=?, deadline=?, status=?, assignee_id=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Complexity, nullableIntPtr(t.EstimatedHours),
		nullableStringPtr(t.Deadline), t.Status, nullableInt64Ptr(t.AssigneeID), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasks returns a project's tasks in board order.
func (r Repo) ListTasks(ctx context.Context, projectID int64) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id=? ORDER BY ord ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// --- applications ---

const applicationColumns = `id,project_id,worker_id,COALESCE(cover_letter,''),proposed_rate,status,created_at`

func scanApplication(scan func(dest ...any) error) (domain.Application, error) {
	var a domain.Application
	var rate sql.NullFloat64
	err := scan(&a.ID, &a.ProjectID, &a.WorkerID, &a.CoverLetter, &rate, &a.Status, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if rate.Valid {
		a.ProposedRate = &rate.Float64
	}
	return a, nil
}

func (r Repo) InsertApplication(ctx context.Context, tx *sql.Tx, a domain.Application) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO applications(project_id,worker_id,cover_letter,proposed_rate,status,created_at) VALUES (?,?,?,?,?,?)`,
		a.ProjectID, a.WorkerID, nullable(a.CoverLetter), nullableFloatPtr(a.ProposedRate), a.Status, a.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetApplication(ctx context.Context, id int64) (domain.Application, error) {
	return getApplication(ctx, r.DB, id)
}

func (r Repo) GetApplicationTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Application, error) {
	return getApplication(ctx, tx, id)
}

func getApplication(ctx context.Context, q querier, id int64) (domain.Application, error) {
	row := q.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=?`, id)
	return scanApplication(row.Scan)
}

// GetApplicationByWorkerTx finds a worker's application on a project, if any.
func (r Repo) GetApplicationByWorkerTx(ctx context.Context, tx *sql.Tx, projectID, workerID int64) (domain.Application, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE project_id=? AND worker_id=?`, projectID, workerID)
	return scanApplication(row.Scan)
}

func (r Repo) UpdateApplicationStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE applications SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListApplications(ctx context.Context, projectID int64) ([]domain.Application, error) {
	return r.queryApplications(ctx, `SELECT `+applicationColumns+` FROM applications WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
}

// ListApplicationsTx lists a project's applications inside a transaction.
func (r Repo) ListApplicationsTx(ctx context.Context, tx *sql.Tx, projectID int64) ([]domain.Application, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE project_id=? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) ListApplicationsByWorker(ctx context.Context, workerID int64) ([]domain.Application, error) {
	return r.queryApplications(ctx, `SELECT `+applicationColumns+` FROM applications WHERE worker_id=? ORDER BY created_at DESC, id DESC`, workerID)
}

func (r Repo) queryApplications(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// --- contracts ---

const contractColumns = `id,project_id,requester_id,worker_id,total_amount,platform_fee,worker_payment,terms,status,requester_signed_at,worker_signed_at,created_at,completed_at`

func scanContract(scan func(dest ...any) error) (domain.Contract, error) {
	var c domain.Contract
	var reqSigned, wrkSigned, completed sql.NullString
	err := scan(&c.ID, &c.ProjectID, &c.RequesterID, &c.WorkerID, &c.TotalAmount, &c.PlatformFee,
		&c.WorkerPayment, &c.Terms, &c.Status, &reqSigned, &wrkSigned, &c.CreatedAt, &completed)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if reqSigned.Valid {
		c.RequesterSignedAt = &reqSigned.String
	}
	if wrkSigned.Valid {
		c.WorkerSignedAt = &wrkSigned.String
	}
	if completed.Valid {
		c.CompletedAt = &completed.String
	}
	return c, nil
}

func (r Repo) InsertContract(ctx context.Context, tx *sql.Tx, c domain.Contract) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO contracts(project_id,requester_id,worker_id,total_amount,platform_fee,worker_payment,terms,status,requester_signed_at,worker_signed_at,created_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ProjectID, c.RequesterID, c.WorkerID, c.TotalAmount, c.PlatformFee, c.WorkerPayment,
		c.Terms, c.Status, nullableStringPtr(c.RequesterSignedAt), nullableStringPtr(c.WorkerSignedAt),
		c.CreatedAt, nullableStringPtr(c.CompletedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetContract(ctx context.Context, id int64) (domain.Contract, error) {
	return getContract(ctx, r.DB, id)
}

func (r Repo) GetContractTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Contract, error) {
	return getContract(ctx, tx, id)
}

func getContract(ctx context.Context, q querier, id int64) (domain.Contract, error) {
	row := q.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id=?`, id)
	return scanContract(row.Scan)
}

// LatestContractForProjectTx returns the newest non-cancelled contract for a
// project, ErrNotFound if none exists.
func (r Repo) LatestContractForProjectTx(ctx context.Context, tx *sql.Tx, projectID int64) (domain.Contract, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE project_id=? AND status != 'cancelled' ORDER BY id DESC LIMIT 1`, projectID)
	return scanContract(row.Scan)
}

func (r Repo) GetContractByProject(ctx context.Context, projectID int64) (domain.Contract, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE project_id=? ORDER BY id DESC LIMIT 1`, projectID)
	return scanContract(row.Scan)
}

func (r Repo) UpdateContractTx(ctx context.Context, tx *sql.Tx, c domain.Contract) error {
	res, err := tx.ExecContext(ctx, `UPDATE contracts SET status=?, requester_signed_at=?, worker_signed_at=?, completed_at=? WHERE id=?`,
		c.Status, nullableStringPtr(c.RequesterSignedAt), nullableStringPtr(c.WorkerSignedAt), nullableStringPtr(c.CompletedAt), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- ratings ---

const ratingColumns = `id,project_id,reviewer_id,reviewee_id,score,COALESCE(comment,''),quality_score,communication_score,deadline_score,created_at`

func scanRating(scan func(dest ...any) error) (domain.Rating, error) {
	var rt domain.Rating
	var quality, communication, deadline sql.NullInt64
	err := scan(&rt.ID, &rt.ProjectID, &rt.ReviewerID, &rt.RevieweeID, &rt.Score, &rt.Comment,
		&quality, &communication, &deadline, &rt.CreatedAt)
	if err == sql.ErrNoRows {
		return rt, ErrNotFound
	}
	if err != nil {
		return rt, err
	}
	if quality.Valid {
		v := int(quality.Int64)
		rt.QualityScore = &v
	}
	if communication.Valid {
		v := int(communication.Int64)
		rt.CommunicationScore = &v
	}
	if deadline.Valid {
		v := int(deadline.Int64)
		rt.DeadlineScore = &v
	}
	return rt, nil
}

func (r Repo) InsertRating(ctx context.Context, tx *sql.Tx, rt domain.Rating) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO ratings(project_id,reviewer_id,reviewee_id,score,comment,quality_score,communication_score,deadline_score,created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		rt.ProjectID, rt.ReviewerID, rt.RevieweeID, rt.Score, nullable(rt.Comment),
		nullableIntPtr(rt.QualityScore), nullableIntPtr(rt.CommunicationScore), nullableIntPtr(rt.DeadlineScore), rt.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetRating(ctx context.Context, id int64) (domain.Rating, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id=?`, id)
	return scanRating(row.Scan)
}

// GetRatingByReviewerTx finds the reviewer's rating on a project, if any.
func (r Repo) GetRatingByReviewerTx(ctx context.Context, tx *sql.Tx, projectID, reviewerID int64) (domain.Rating, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE project_id=? AND reviewer_id=?`, projectID, reviewerID)
	return scanRating(row.Scan)
}

func (r Repo) ListRatingsForUser(ctx context.Context, revieweeID int64, limit, offset int) ([]domain.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE reviewee_id=? ORDER BY created_at DESC, id DESC`
	args := []any{revieweeID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Rating
	for rows.Next() {
		rt, err := scanRating(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rt)
	}
	return res, rows.Err()
}

// AverageScoreTx recomputes the mean score over every committed rating for the
// reviewee. Full-history, so it is order-independent under concurrent inserts.
func (r Repo) AverageScoreTx(ctx context.Context, tx *sql.Tx, revieweeID int64) (float64, error) {
	var avg sql.NullFloat64
	err := tx.QueryRowContext(ctx, `SELECT AVG(score) FROM ratings WHERE reviewee_id=?`, revieweeID).Scan(&avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, projectID int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, projectID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor, projectID int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if projectID != 0 {
		clauses = append(clauses, "project_id=?")
		args = append(args, projectID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(project_id,0),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ProjectID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- stats ---

func (r Repo) PlatformStats(ctx context.Context) (domain.PlatformStats, error) {
	var s domain.PlatformStats
	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM users`, &s.TotalUsers},
		{`SELECT COUNT(*) FROM users WHERE role='worker'`, &s.TotalWorkers},
		{`SELECT COUNT(*) FROM users WHERE role='requester'`, &s.TotalRequesters},
		{`SELECT COUNT(*) FROM projects`, &s.TotalProjects},
		{`SELECT COUNT(*) FROM projects WHERE status='open'`, &s.OpenProjects},
		{`SELECT COUNT(*) FROM projects WHERE status='in_progress'`, &s.InProgressProjects},
		{`SELECT COUNT(*) FROM projects WHERE status='completed'`, &s.CompletedProjects},
		{`SELECT COUNT(*) FROM applications`, &s.TotalApplications},
		{`SELECT COUNT(*) FROM applications WHERE status='pending'`, &s.PendingApplications},
		{`SELECT COUNT(*) FROM contracts`, &s.TotalContracts},
		{`SELECT COUNT(*) FROM contracts WHERE status='active'`, &s.ActiveContracts},
	}
	for _, c := range counts {
		if err := r.DB.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return s, err
		}
	}
	return s, nil
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func encodeStringSlice(in []string) any {
	if len(in) == 0 {
		return nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
