package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const projectColumns = `id, name, start_date, end_date,
	budget_amount, advance_amount, expense_amount, balance_amount,
	bill_submission_date, sop_roi_email_submission_date,
	bill_top_sheet_image, budget_copy_attachment, created_at, is_settled`

const insertProjectSQL = `
	INSERT INTO projects (id, name, start_date, end_date,
		budget_amount, advance_amount, expense_amount,
		bill_submission_date, sop_roi_email_submission_date,
		bill_top_sheet_image, budget_copy_attachment, is_settled)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	RETURNING ` + projectColumns

// Postgres is the database-backed gateway. Reads and single-row writes go through DB, which
// may be opened with either the pgx or the lib/pq driver. Bulk inserts use Pool when it is set.
type Postgres struct {
	DB     *sql.DB
	Pool   *pgxpool.Pool
	Logger *log.Logger
}

// Open connects with the named database/sql driver ("pgx" or "postgres") and verifies the
// connection. A pgxpool for bulk writes is created alongside it.
func Open(ctx context.Context, driver, dsn string, logger *log.Logger) (*Postgres, error) {
	if logger == nil {
		logger = log.Discard()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create pgxpool: %w", err)
	}

	return &Postgres{DB: db, Pool: pool, Logger: logger.WithComponent(log.ComponentStorage)}, nil
}

// NewPostgres wraps an existing connection. Pool may be nil.
func NewPostgres(db *sql.DB, pool *pgxpool.Pool, logger *log.Logger) *Postgres {
	if logger == nil {
		logger = log.Discard()
	}
	return &Postgres{DB: db, Pool: pool, Logger: logger.WithComponent(log.ComponentStorage)}
}

// Close releases the pool and the database handle.
func (s *Postgres) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullAttachment scans a nullable JSONB attachment column.
type nullAttachment struct {
	A *models.Attachment
}

func (n *nullAttachment) Scan(value any) error {
	if value == nil {
		n.A = nil
		return nil
	}
	n.A = &models.Attachment{}
	return n.A.Scan(value)
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p             models.Project
		bill, sop     models.Date
		sheet, budget nullAttachment
		settled       sql.NullBool
	)
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate,
		&p.BudgetAmount, &p.AdvanceAmount, &p.ExpenseAmount, &p.BalanceAmount,
		&bill, &sop, &sheet, &budget, &p.CreatedAt, &settled)
	if err != nil {
		return models.Project{}, err
	}
	if !bill.IsZero() {
		p.BillSubmissionDate = &bill
	}
	if !sop.IsZero() {
		p.SopRoiEmailSubmissionDate = &sop
	}
	p.BillTopSheetImage = sheet.A
	p.BudgetCopyAttachment = budget.A
	if settled.Valid {
		v := settled.Bool
		p.IsSettled = &v
	}
	return p, nil
}

func insertArgs(id string, p models.Project) []any {
	return []any{id, p.Name, p.StartDate, p.EndDate,
		p.BudgetAmount, p.AdvanceAmount, p.ExpenseAmount,
		p.BillSubmissionDate, p.SopRoiEmailSubmissionDate,
		p.BillTopSheetImage, p.BudgetCopyAttachment, p.IsSettled}
}

func (s *Postgres) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		s.Logger.ErrorContext(ctx, "list projects failed", log.FieldError, err)
		return nil, unavailable("list projects", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, unavailable("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list projects", err)
	}
	return projects, nil
}

func (s *Postgres) GetProject(ctx context.Context, id string) (models.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	p, err := scanProject(s.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, unavailable("get project", err)
	}
	return p, nil
}

func (s *Postgres) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if err := prepare(&p); err != nil {
		return models.Project{}, err
	}
	created, err := scanProject(s.DB.QueryRowContext(ctx, insertProjectSQL, insertArgs(uuid.NewString(), p)...))
	if err != nil {
		s.Logger.ErrorContext(ctx, "create project failed", log.FieldOperation, log.OpCreate, log.FieldError, err)
		return models.Project{}, unavailable("create project", err)
	}
	return created, nil
}

func (s *Postgres) UpdateProject(ctx context.Context, id string, p models.Project) (models.Project, error) {
	if err := prepare(&p); err != nil {
		return models.Project{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	updated, err := scanProject(s.DB.QueryRowContext(ctx, `
		UPDATE projects SET
			name = $2, start_date = $3, end_date = $4,
			budget_amount = $5, advance_amount = $6, expense_amount = $7,
			bill_submission_date = $8, sop_roi_email_submission_date = $9,
			bill_top_sheet_image = $10, budget_copy_attachment = $11, is_settled = $12
		WHERE id = $1
		RETURNING `+projectColumns, insertArgs(id, p)...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		s.Logger.ErrorContext(ctx, "update project failed", log.FieldProjectID, id, log.FieldError, err)
		return models.Project{}, unavailable("update project", err)
	}
	return updated, nil
}

func (s *Postgres) DeleteProject(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		s.Logger.ErrorContext(ctx, "delete project failed", log.FieldProjectID, id, log.FieldError, err)
		return unavailable("delete project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete project", err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// CreateProjects inserts the batch in one transaction.
func (s *Postgres) CreateProjects(ctx context.Context, projects []models.Project) ([]models.Project, error) {
	batch := make([]models.Project, len(projects))
	copy(batch, projects)
	if err := prepareAll(batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []models.Project{}, nil
	}

	var (
		out []models.Project
		err error
	)
	if s.Pool != nil {
		out, err = s.createProjectsPgx(ctx, batch)
	} else {
		out, err = s.createProjectsSQL(ctx, batch)
	}
	if err != nil {
		s.Logger.ErrorContext(ctx, "bulk create failed", log.FieldCount, len(batch), log.FieldError, err)
		return nil, unavailable("create projects", err)
	}
	return out, nil
}

func (s *Postgres) createProjectsPgx(ctx context.Context, batch []models.Project) ([]models.Project, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := make([]models.Project, 0, len(batch))
	for _, p := range batch {
		created, err := scanProject(tx.QueryRow(ctx, insertProjectSQL, pgxArgs(uuid.NewString(), p)...))
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// pgxArgs turns typed nil pointers and dates into plain values for the native pgx protocol.
func pgxArgs(id string, p models.Project) []any {
	args := insertArgs(id, p)
	for i, a := range args {
		switch v := a.(type) {
		case models.Date:
			args[i] = v.Time
		case *models.Date:
			args[i] = nil
			if v != nil {
				args[i] = v.Time
			}
		case *models.Attachment:
			if v == nil {
				args[i] = nil
			}
		case *bool:
			if v == nil {
				args[i] = nil
			}
		}
	}
	return args
}

func (s *Postgres) createProjectsSQL(ctx context.Context, batch []models.Project) ([]models.Project, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]models.Project, 0, len(batch))
	for _, p := range batch {
		created, err := scanProject(tx.QueryRowContext(ctx, insertProjectSQL, insertArgs(uuid.NewString(), p)...))
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Postgres) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING created_at`, u.Username, u.PasswordHash, string(u.Role)).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return models.User{}, fmt.Errorf("user %s: %w", u.Username, models.ErrDuplicateIdentity)
	}
	if err != nil {
		s.Logger.ErrorContext(ctx, "create user failed", log.FieldUsername, u.Username, log.FieldError, err)
		return models.User{}, unavailable("create user", err)
	}
	return u, nil
}

func (s *Postgres) GetUser(ctx context.Context, username string) (models.User, error) {
	var (
		u    models.User
		role string
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT username, password_hash, role, created_at
		FROM users WHERE username = $1`, username).Scan(&u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", username, models.ErrNotFound)
	}
	if err != nil {
		return models.User{}, unavailable("get user", err)
	}
	u.Role = models.Role(role)
	return u, nil
}

// isUniqueViolation recognises duplicate-key errors from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
