package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/forky/internal/model"
)

// PostgresCourseUserRepo はPostgreSQLを使用したコースプラットフォームのユーザーリポジトリ。
type PostgresCourseUserRepo struct {
	db *sql.DB
}

// NewPostgresCourseUserRepo はPostgresCourseUserRepoを生成する。
func NewPostgresCourseUserRepo(db *sql.DB) *PostgresCourseUserRepo {
	return &PostgresCourseUserRepo{db: db}
}

// CreateAccount はstudent権限のユーザーを作成する。emailが重複する場合はErrDuplicateを返す。
func (r *PostgresCourseUserRepo) CreateAccount(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO course_users (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		account.ID, account.Name, account.Login, account.PasswordHash, string(model.RoleStudent), account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert course user: %w", err)
	}
	return nil
}

// FindAccountByLogin はemailでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresCourseUserRepo) FindAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	account := &model.Account{Tenant: model.TenantCourses}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM course_users WHERE email = $1`,
		login,
	).Scan(&account.ID, &account.Name, &account.Login, &account.PasswordHash, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course user by email: %w", err)
	}
	return account, nil
}

// FindByID は指定IDのユーザーを最新の状態で取得する。見つからない場合はnilを返す。
func (r *PostgresCourseUserRepo) FindByID(ctx context.Context, id string) (*model.CourseUser, error) {
	user := &model.CourseUser{}
	var role string
	var bought pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, courses_bought, created_at, updated_at
		 FROM course_users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &bought, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course user by ID: %w", err)
	}

	if user.Role, err = model.ParseRole(role); err != nil {
		return nil, fmt.Errorf("invalid role for user %s: %w", id, err)
	}
	user.CoursesBought = []string(bought)
	return user, nil
}

// GrantCourse は購入済みコース集合にコースIDを追加する。
// 既に含まれている場合は更新せずfalseを返す。
// 行ロックとWHERE句の再評価により、同時に実行されても重複は発生しない。
func (r *PostgresCourseUserRepo) GrantCourse(ctx context.Context, userID, courseID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE course_users
		 SET courses_bought = array_append(courses_bought, $2::text), updated_at = now()
		 WHERE id = $1 AND NOT ($2::text = ANY(courses_bought))`,
		userID, courseID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to grant course: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// UpdateRoleByEmail はemailで指定したユーザーの権限を変更する。見つからない場合はfalseを返す。
func (r *PostgresCourseUserRepo) UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE course_users SET role = $2, updated_at = now() WHERE email = $1`,
		email, string(role),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

const courseColumns = `id, title, description, summary, thumbnail, instructor, cost, coming_soon, created_at, updated_at`

// PostgresCourseRepo はPostgreSQLを使用したコースリポジトリ。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

// Create はコースを作成する。
func (r *PostgresCourseRepo) Create(ctx context.Context, course *model.Course) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		course.ID, course.Title, course.Description, course.Summary, course.Thumbnail,
		course.Instructor, course.Cost, course.ComingSoon, course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

// List は全コースを作成日時順に返す。
func (r *PostgresCourseRepo) List(ctx context.Context) ([]*model.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := []*model.Course{}
	for rows.Next() {
		c := &model.Course{}
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.Summary, &c.Thumbnail,
			&c.Instructor, &c.Cost, &c.ComingSoon, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}
	return courses, nil
}

// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
func (r *PostgresCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`,
		id,
	)
	course, err := scanCourse(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return course, nil
}

// Update はコースを部分更新する。見つからない場合はnilを返す。
func (r *PostgresCourseRepo) Update(ctx context.Context, id string, update model.CourseUpdate) (*model.Course, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE courses SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			summary = COALESCE($4, summary),
			thumbnail = COALESCE($5, thumbnail),
			instructor = COALESCE($6, instructor),
			cost = COALESCE($7, cost),
			coming_soon = COALESCE($8, coming_soon),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+courseColumns,
		id, update.Title, update.Description, update.Summary, update.Thumbnail,
		update.Instructor, update.Cost, update.ComingSoon,
	)
	course, err := scanCourse(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	return course, nil
}

// DeleteByID はコースを削除する。見つからない場合はfalseを返す。
func (r *PostgresCourseRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete course: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func scanCourse(row *sql.Row) (*model.Course, error) {
	c := &model.Course{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Summary, &c.Thumbnail,
		&c.Instructor, &c.Cost, &c.ComingSoon, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// PostgresVideoRepo はPostgreSQLを使用した動画リポジトリ。
type PostgresVideoRepo struct {
	db *sql.DB
}

// NewPostgresVideoRepo はPostgresVideoRepoを生成する。
func NewPostgresVideoRepo(db *sql.DB) *PostgresVideoRepo {
	return &PostgresVideoRepo{db: db}
}

// CreateForCourse は参照先のコースが存在する場合のみ動画を作成する。
// コースの存在確認と挿入は同一のINSERT文で行う。
func (r *PostgresVideoRepo) CreateForCourse(ctx context.Context, video *model.Video) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO videos (id, course_id, title, description, url, week, day, created_at)
		 SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::integer, $7::integer, $8::timestamptz
		 WHERE EXISTS (SELECT 1 FROM courses WHERE id = $2::uuid)`,
		video.ID, video.CourseID, video.Title, video.Description, video.URL,
		video.Week, video.Day, video.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert video: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ListByCourseID はコースの動画を週・日順に返す。
func (r *PostgresVideoRepo) ListByCourseID(ctx context.Context, courseID string) ([]*model.Video, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, course_id, title, description, url, week, day, created_at
		 FROM videos WHERE course_id = $1 ORDER BY week ASC, day ASC, created_at ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	videos := []*model.Video{}
	for rows.Next() {
		v := &model.Video{}
		if err := rows.Scan(&v.ID, &v.CourseID, &v.Title, &v.Description, &v.URL, &v.Week, &v.Day, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return videos, nil
}

// DeleteByID は動画を削除する。見つからない場合はfalseを返す。
func (r *PostgresVideoRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete video: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByCourseID はコースに属する動画をすべて削除し、削除件数を返す。
func (r *PostgresVideoRepo) DeleteByCourseID(ctx context.Context, courseID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete videos of course: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// DeleteOrphans は存在しないコースを参照する動画を削除し、削除件数を返す。
func (r *PostgresVideoRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM videos v WHERE NOT EXISTS (SELECT 1 FROM courses c WHERE c.id = v.course_id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan videos: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// PostgresHighfiveRepo はPostgreSQLを使用したフィードバック投稿リポジトリ。
type PostgresHighfiveRepo struct {
	db *sql.DB
}

// NewPostgresHighfiveRepo はPostgresHighfiveRepoを生成する。
func NewPostgresHighfiveRepo(db *sql.DB) *PostgresHighfiveRepo {
	return &PostgresHighfiveRepo{db: db}
}

// Create は投稿を作成する。
func (r *PostgresHighfiveRepo) Create(ctx context.Context, highfive *model.Highfive) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO highfives (id, fullname, email, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
		highfive.ID, highfive.Fullname, highfive.Email, highfive.Message, highfive.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert highfive: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ CourseUserRepository = (*PostgresCourseUserRepo)(nil)
	_ CourseRepository     = (*PostgresCourseRepo)(nil)
	_ VideoRepository      = (*PostgresVideoRepo)(nil)
	_ HighfiveRepository   = (*PostgresHighfiveRepo)(nil)
)
