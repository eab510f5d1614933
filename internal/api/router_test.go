package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ngx_scraper/internal/api"
	"ngx_scraper/internal/api/middleware"
	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	store   *dataset.Store
	csvPath string
}

func newTestServer(t *testing.T, burst int) *testServer {
	t.Helper()
	store := dataset.NewStore()
	csvPath := filepath.Join(t.TempDir(), "equities_data.csv")
	router := api.NewRouter(store, api.Options{
		Users:      map[string]string{"admin": "password"},
		Tokens:     middleware.NewTokens([]byte("test-secret"), time.Minute),
		CSVPath:    csvPath,
		LoginRPS:   0.001,
		LoginBurst: burst,
	})
	return &testServer{router: router, store: store, csvPath: csvPath}
}

func (s *testServer) do(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(http.MethodPost, "/login", "", []byte(`{"username":"admin","password":"password"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func publishSample(store *dataset.Store) {
	store.Publish(&models.Snapshot{
		RunID:     "run-1",
		ScrapedAt: time.Date(2026, 10, 1, 14, 30, 0, 0, time.UTC),
		Records: []models.Record{
			models.RecordOf("Symbol", "DANGOTE", "Price", "300"),
			models.RecordOf("Symbol", "GTCO", "Price", "45"),
		},
	})
}

func errorMsg(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Msg
}

func TestLoginAndReadData(t *testing.T) {
	s := newTestServer(t, 5)
	publishSample(s.store)

	w := s.do(http.MethodGet, "/api/data", s.login(t), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"Symbol":"DANGOTE","Price":"300"},{"Symbol":"GTCO","Price":"45"}]`, w.Body.String())
	assert.True(t, strings.Index(w.Body.String(), "Symbol") < strings.Index(w.Body.String(), "Price"))
}

func TestDataBeforeFirstPublishIsEmptyArray(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodGet, "/api/data", s.login(t), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t, 5)

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"nobody","password":"password"}`,
		`{}`,
	} {
		w := s.do(http.MethodPost, "/login", "", []byte(body))
		assert.Equal(t, http.StatusUnauthorized, w.Code, body)
		assert.Equal(t, "Bad username or password", errorMsg(t, w))
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodPost, "/login", "", []byte(`{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	body := []byte(`{"username":"admin","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/login", "", body).Code)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	s := newTestServer(t, 5)

	for _, path := range []string{"/api/data", "/api/csv", "/api/xlsx"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Missing Authorization Header", errorMsg(t, w))

		w = s.do(http.MethodGet, path, "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Invalid token", errorMsg(t, w))
	}
}

func TestTokenFromAnotherSecretIsRejected(t *testing.T) {
	s := newTestServer(t, 5)
	foreign, err := middleware.NewTokens([]byte("other-secret"), time.Minute).Issue("admin")
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/data", foreign, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCSVDownload(t *testing.T) {
	s := newTestServer(t, 5)
	token := s.login(t)

	w := s.do(http.MethodGet, "/api/csv", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(s.csvPath, []byte("Symbol,Price\nDANGOTE,300\n"), 0o644))

	w = s.do(http.MethodGet, "/api/csv", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "equities_data.csv")
	assert.Equal(t, "Symbol,Price\nDANGOTE,300\n", w.Body.String())
}

func TestXLSXDownload(t *testing.T) {
	s := newTestServer(t, 5)
	token := s.login(t)

	w := s.do(http.MethodGet, "/api/xlsx", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	publishSample(s.store)
	w = s.do(http.MethodGet, "/api/xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Symbol", "Price"}, {"DANGOTE", "300"}, {"GTCO", "45"}}, rows)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 5)

	var resp models.HealthResponse
	w := s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.Records)
	assert.Empty(t, resp.ScrapedAt)

	publishSample(s.store)
	w = s.do(http.MethodGet, "/api/health", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Records)
	assert.Equal(t, "2026-10-01T14:30:00Z", resp.ScrapedAt)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No data scraped yet.")

	publishSample(s.store)
	w = s.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<th>Symbol</th><th>Price</th>")
	assert.Contains(t, w.Body.String(), "<td>DANGOTE</td><td>300</td>")
	assert.Contains(t, w.Body.String(), "2 records")
}
