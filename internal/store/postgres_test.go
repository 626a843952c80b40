package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"project-ledger-api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "0b6f6a4e-6f43-4c53-9d8f-3f3c0f8f6a01"

var projectColumnNames = []string{
	"id", "name", "start_date", "end_date",
	"budget_amount", "advance_amount", "expense_amount", "balance_amount",
	"bill_submission_date", "sop_roi_email_submission_date",
	"bill_top_sheet_image", "budget_copy_attachment", "created_at", "is_settled",
}

func setupPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, nil, nil), mock
}

func siteARow(rows *sqlmock.Rows, id string, created time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "Site A",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		"100000", "40000", "15000", "25000",
		nil, []byte("2024-02-03"),
		[]byte(`{"name":"sheet.png","mime_type":"image/png","data":"AQID"}`), nil,
		created, nil)
}

func TestPostgres_ListProjects(t *testing.T) {
	s, mock := setupPostgres(t)
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM projects ORDER BY created_at DESC`).
		WillReturnRows(siteARow(sqlmock.NewRows(projectColumnNames), testID, created))

	list, err := s.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	p := list[0]
	assert.Equal(t, testID, p.ID)
	assert.Equal(t, "2024-01-31", p.EndDate.String())
	assert.Equal(t, "25000", p.BalanceAmount.String())
	assert.Nil(t, p.BillSubmissionDate)
	require.NotNil(t, p.SopRoiEmailSubmissionDate)
	assert.Equal(t, "2024-02-03", p.SopRoiEmailSubmissionDate.String())
	require.NotNil(t, p.BillTopSheetImage)
	assert.Equal(t, []byte{1, 2, 3}, p.BillTopSheetImage.Data)
	assert.Nil(t, p.BudgetCopyAttachment)
	assert.Nil(t, p.IsSettled)
	assert.Equal(t, created, p.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListProjectsUnavailable(t *testing.T) {
	s, mock := setupPostgres(t)
	mock.ExpectQuery(`SELECT (.+) FROM projects`).WillReturnError(errors.New("connection refused"))

	_, err := s.ListProjects(context.Background())
	assert.True(t, errors.Is(err, models.ErrGatewayUnavailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateProject(t *testing.T) {
	s, mock := setupPostgres(t)
	created := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs(
			sqlmock.AnyArg(), // id
			"Site A",
			models.MustParseDate("2024-01-01"),
			models.MustParseDate("2024-01-31"),
			"100000",
			"40000",
			"15000",
			nil,
			nil,
			nil,
			nil,
			nil,
		).
		WillReturnRows(siteARow(sqlmock.NewRows(projectColumnNames), testID, created))

	in := siteA()
	p, err := s.CreateProject(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, testID, p.ID)
	assert.Equal(t, "25000", p.BalanceAmount.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateProjectInvalidSkipsDatabase(t *testing.T) {
	s, mock := setupPostgres(t)

	_, err := s.CreateProject(context.Background(), models.Project{})
	assert.True(t, errors.Is(err, models.ErrValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateMissingProject(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectQuery(`UPDATE projects SET`).
		WillReturnRows(sqlmock.NewRows(projectColumnNames))

	_, err := s.UpdateProject(context.Background(), testID, siteA())
	assert.True(t, errors.Is(err, models.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MalformedIDIsNotFound(t *testing.T) {
	s, mock := setupPostgres(t)
	ctx := context.Background()

	_, err := s.GetProject(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	_, err = s.UpdateProject(ctx, "not-a-uuid", siteA())
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteProject(ctx, "not-a-uuid"), models.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteProject(t *testing.T) {
	s, mock := setupPostgres(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.DeleteProject(ctx, testID))
	assert.True(t, errors.Is(s.DeleteProject(ctx, testID), models.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateProjectsCommits(t *testing.T) {
	s, mock := setupPostgres(t)
	created := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO projects`).
		WillReturnRows(siteARow(sqlmock.NewRows(projectColumnNames), testID, created))
	mock.ExpectQuery(`INSERT INTO projects`).
		WillReturnRows(siteARow(sqlmock.NewRows(projectColumnNames), "9d7a1c1e-1111-4e0e-a2a2-0d3d3b0c0c02", created))
	mock.ExpectCommit()

	out, err := s.CreateProjects(context.Background(), []models.Project{siteA(), siteA()})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateProjectsRollsBack(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO projects`).
		WillReturnRows(siteARow(sqlmock.NewRows(projectColumnNames), testID, time.Now()))
	mock.ExpectQuery(`INSERT INTO projects`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.CreateProjects(context.Background(), []models.Project{siteA(), siteA()})
	assert.True(t, errors.Is(err, models.ErrGatewayUnavailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateUserDuplicate(t *testing.T) {
	for name, dupErr := range map[string]error{
		"pgx": &pgconn.PgError{Code: "23505"},
		"pq":  &pq.Error{Code: "23505"},
	} {
		t.Run(name, func(t *testing.T) {
			s, mock := setupPostgres(t)
			mock.ExpectQuery(`INSERT INTO users`).
				WithArgs("alice", "hash", "ADMIN").
				WillReturnError(dupErr)

			_, err := s.CreateUser(context.Background(), models.User{Username: "alice", PasswordHash: "hash", Role: models.RoleAdmin})
			assert.True(t, errors.Is(err, models.ErrDuplicateIdentity))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_GetUser(t *testing.T) {
	s, mock := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT username, password_hash, role, created_at`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "role", "created_at"}).
			AddRow("alice", "hash", "VIEWER", now))
	mock.ExpectQuery(`SELECT username, password_hash, role, created_at`).
		WithArgs("bob").
		WillReturnError(sql.ErrNoRows)

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, u.Role)
	assert.Equal(t, now, u.CreatedAt)

	_, err = s.GetUser(ctx, "bob")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("unique")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
}
