//go:build integration

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"project-ledger-api/internal"
	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/config"
	"project-ledger-api/internal/ledger"
	"project-ledger-api/internal/models"
	"project-ledger-api/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *internal.Server {
	t.Helper()
	pg := testutil.NewStore(t)

	cfg := &config.Config{
		DataBackend:   "postgres",
		JWTSecret:     "supersecretkeyforintegrationtestingonly",
		JWTIssuer:     "project-ledger-api",
		JWTAudience:   "project-ledger-api",
		JWTExpiry:     24 * time.Hour,
		OrgName:       "Akij",
		Currency:      "BDT",
		Timezone:      "UTC",
		EnableMetrics: true,
	}
	s, err := internal.New(cfg, internal.Backend{Projects: pg, Users: pg}, auth.NewMemoryRevoker(), nil, nil)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *internal.Server, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

// signIn registers username with role and returns a bearer token for it.
func signIn(t *testing.T, s *internal.Server, username string, role models.Role) string {
	t.Helper()
	w := call(t, s, "POST", "/auth/register", models.RegisterRequest{Username: username, Password: "secret", Role: role}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, s, "POST", "/auth/login?bearer=true", models.LoginRequest{Username: username, Password: "secret"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	s := newServer(t)

	w := call(t, s, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = call(t, s, "GET", "/dbping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnauthorizedAccess(t *testing.T) {
	s := newServer(t)

	w := call(t, s, "GET", "/projects", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, s, "GET", "/projects", nil, "invalid-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDuplicateRegistration(t *testing.T) {
	s := newServer(t)
	signIn(t, s, "alice", models.RoleAdmin)

	w := call(t, s, "POST", "/auth/register", models.RegisterRequest{Username: "alice", Password: "x", Role: models.RoleViewer}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	s := newServer(t)
	admin := signIn(t, s, "alice", models.RoleAdmin)
	viewer := signIn(t, s, "victor", models.RoleViewer)

	body := map[string]interface{}{
		"name":                 "Site A",
		"start_date":           "2024-01-01",
		"end_date":             "2024-01-31",
		"budget_amount":        "100000.50",
		"advance_amount":       40000,
		"expense_amount":       15000,
		"balance_amount":       1,
		"bill_submission_date": "2024-02-03",
		"budget_copy_attachment": models.Attachment{
			Name: "budget.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4"),
		},
	}

	w := call(t, s, "POST", "/projects", body, viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, s, "POST", "/projects", body, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, decimal.NewFromInt(25000).Equal(created.BalanceAmount), "balance is generated by the database")
	assert.True(t, decimal.RequireFromString("100000.50").Equal(created.BudgetAmount))
	require.NotNil(t, created.BillSubmissionDate)
	assert.Equal(t, "2024-02-03", created.BillSubmissionDate.String())
	assert.Nil(t, created.SopRoiEmailSubmissionDate)

	w = call(t, s, "GET", "/projects/"+created.ID+"/attachments/budget-copy", nil, viewer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())

	body["expense_amount"] = 60000
	w = call(t, s, "PUT", "/projects/"+created.ID, body, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.True(t, decimal.NewFromInt(-20000).Equal(updated.BalanceAmount))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	w = call(t, s, "PUT", "/projects/9b2f3c1e-0000-4000-8000-000000000000", body, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = call(t, s, "PUT", "/projects/not-a-uuid", body, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, s, "GET", "/lists/completed?as_of=2024-02-01", nil, viewer)
	require.Equal(t, http.StatusOK, w.Code)
	var list ledger.ListView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "-BDT 20,000", list.Rows[0].Formatted.BalanceAmount)

	w = call(t, s, "DELETE", "/projects/"+created.ID, nil, admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = call(t, s, "GET", "/projects/"+created.ID, nil, viewer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newServer(t)
	token := signIn(t, s, "alice", models.RoleAdmin)

	w := call(t, s, "GET", "/dashboard", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, s, "POST", "/auth/logout", nil, token)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, s, "GET", "/dashboard", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCloseReleasesBackend(t *testing.T) {
	s := newServer(t)
	assert.NoError(t, s.Close(context.Background()))
}
