package repo

import (
	"context"
	"database/sql"

	"gigboard/internal/domain"
)

const userColumns = `id,email,first_name,last_name,role,COALESCE(bio,''),skills_json,COALESCE(avatar_url,''),rating_score,completed_projects,is_active,created_at,updated_at`

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var skills sql.NullString
	var active int
	err := scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.Bio, &skills, &u.AvatarURL,
		&u.RatingScore, &u.CompletedProjects, &active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if skills.Valid {
		u.Skills = decodeStringSlice(skills.String)
	}
	u.Active = active != 0
	return u, nil
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO users(email,first_name,last_name,role,bio,skills_json,avatar_url,rating_score,completed_projects,is_active,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Email, u.FirstName, u.LastName, u.Role, nullable(u.Bio), encodeStringSlice(u.Skills),
		nullable(u.AvatarURL), u.RatingScore, u.CompletedProjects, boolToInt(u.Active), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return getUser(ctx, r.DB, id)
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id int64) (domain.User, error) {
	return getUser(ctx, tx, id)
}

func getUser(ctx context.Context, q querier, id int64) (domain.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	return scanUser(row.Scan)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return getUserByEmail(ctx, r.DB, email)
}

func (r Repo) GetUserByEmailTx(ctx context.Context, tx *sql.Tx, email string) (domain.User, error) {
	return getUserByEmail(ctx, tx, email)
}

func getUserByEmail(ctx context.Context, q querier, email string) (domain.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email)
	return scanUser(row.Scan)
}

func (r Repo) UpdateUserTx(ctx context.Context, tx *sql.Tx, u domain.User) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET email=?, first_name=?, last_name=?, role=?, bio=?, skills_json=?, avatar_url=?, rating_score=?, completed_projects=?, is_active=?, updated_at=? WHERE id=?`,
		u.Email, u.FirstName, u.LastName, u.Role, nullable(u.Bio), encodeStringSlice(u.Skills),
		nullable(u.AvatarURL), u.RatingScore, u.CompletedProjects, boolToInt(u.Active), u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWorkers returns active workers ordered by reputation.
func (r Repo) ListWorkers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role='worker' AND is_active=1 ORDER BY rating_score DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return r.queryUsers(ctx, query, args...)
}

// Leaderboard returns the top workers by reputation.
func (r Repo) Leaderboard(ctx context.Context, limit int) ([]domain.User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE role='worker' AND is_active=1 ORDER BY rating_score DESC, id ASC LIMIT ?`, limit)
}

func (r Repo) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
