package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
	"taskboard/internal/repository/sqlite"
	"taskboard/internal/service"
	"taskboard/internal/storage"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) (*gin.Engine, *sql.DB) {
	return newTestRouterWithStorage(t, nil, "")
}

func newTestRouterWithStorage(t *testing.T, store storage.Service, bucket string) (*gin.Engine, *sql.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	taskRepo := sqlite.NewTaskRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, taskRepo.Init(ctx))

	tokens := auth.NewTokenService(testSecret, time.Hour)
	handler := NewHandler(
		service.NewUserService(userRepo),
		service.NewTaskService(taskRepo),
		tokens,
		store, bucket, "exports",
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()

	creds := gin.H{"username": username, "password": password}
	w := doJSON(t, router, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterLoginFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	creds := gin.H{"username": "alice", "password": "pw1"}

	w := doJSON(t, router, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, http.StatusOK, w.Code)

	// duplicate registration is rejected
	w = doJSON(t, router, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, http.StatusConflict, w.Code)

	// wrong password
	w = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// unknown user answers identically
	w = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{"username": "nobody", "password": "pw1"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTaskLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	aliceToken := loginAs(t, router, "alice", "pw1")
	bobToken := loginAs(t, router, "bob", "pw2")

	w := doJSON(t, router, http.MethodPost, "/api/tasks", aliceToken, gin.H{
		"text":     "buy milk",
		"status":   "open",
		"priority": "high",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var created TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	require.NotZero(t, created.OwnerID)
	require.Equal(t, "buy milk", created.Text)

	// bob's list does not contain alice's task
	w = doJSON(t, router, http.MethodGet, "/api/tasks", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bobTasks []TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bobTasks))
	require.Empty(t, bobTasks)

	// bob cannot touch alice's task, and cannot tell it exists
	taskPath := "/api/tasks/" + strconv.FormatInt(created.ID, 10)
	w = doJSON(t, router, http.MethodPatch, taskPath+"/status", bobToken, gin.H{"status": "done"})
	require.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodDelete, taskPath, bobToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// the owner updates status and priority
	w = doJSON(t, router, http.MethodPatch, taskPath+"/status", aliceToken, gin.H{"status": "done"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, "done", updated.Status)

	w = doJSON(t, router, http.MethodPatch, taskPath+"/priority", aliceToken, gin.H{"priority": "low"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, "low", updated.Priority)

	// delete, then delete again
	w = doJSON(t, router, http.MethodDelete, taskPath, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, taskPath, aliceToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateNonexistentTask(t *testing.T) {
	router, _ := newTestRouter(t)
	token := loginAs(t, router, "alice", "pw1")

	w := doJSON(t, router, http.MethodPatch, "/api/tasks/9999/priority", token, gin.H{"priority": "high"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRejections(t *testing.T) {
	router, _ := newTestRouter(t)

	// no token
	w := doJSON(t, router, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// garbage token
	w = doJSON(t, router, http.MethodGet, "/api/tasks", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// forged token (wrong secret)
	forged, err := auth.NewTokenService("other-secret", time.Hour).Issue(1)
	require.NoError(t, err)
	w = doJSON(t, router, http.MethodGet, "/api/tasks", forged, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// expired token, signed with the right secret
	expired, err := auth.NewTokenService(testSecret, -time.Minute).Issue(1)
	require.NoError(t, err)
	w = doJSON(t, router, http.MethodGet, "/api/tasks", expired, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// all rejections share one generic body
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "unauthorized", resp.Error)
}

func TestStoreFailureIsGeneric(t *testing.T) {
	router, db := newTestRouter(t)
	token := loginAs(t, router, "alice", "pw1")

	// kill the store; the 500 body must not carry driver error text
	require.NoError(t, db.Close())

	w := doJSON(t, router, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "internal server error", resp.Error)
}

func TestRegisterWhitespaceUsername(t *testing.T) {
	router, _ := newTestRouter(t)

	// passes gin's required binding, fails service validation
	w := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{"username": "   ", "password": "pw1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	router, _ := newTestRouter(t)
	token := loginAs(t, router, "alice", "pw1")

	w := doJSON(t, router, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.NotZero(t, me.ID)
	require.Equal(t, "alice", me.Username)

	w = doJSON(t, router, http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

type stubStorage struct {
	putErr     error
	presignErr error
}

func (s *stubStorage) PutObject(ctx context.Context, bucket, key string, body []byte) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	return "s3://" + bucket + "/" + key, nil
}

func (s *stubStorage) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://example.com/" + key, nil
}

func TestExportTasks(t *testing.T) {
	router, _ := newTestRouterWithStorage(t, &stubStorage{}, "bucket")
	token := loginAs(t, router, "alice", "pw1")

	w := doJSON(t, router, http.MethodPost, "/api/tasks/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Location string   `json:"location"`
		URL      string   `json:"url"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Location, "s3://bucket/exports/user-")
	require.NotEmpty(t, resp.URL)
	require.Empty(t, resp.Warnings)
}

func TestExportPresignFailureIsSurfaced(t *testing.T) {
	router, _ := newTestRouterWithStorage(t, &stubStorage{presignErr: errors.New("presign unavailable")}, "bucket")
	token := loginAs(t, router, "alice", "pw1")

	w := doJSON(t, router, http.MethodPost, "/api/tasks/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Location string   `json:"location"`
		URL      string   `json:"url"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Location)
	require.Empty(t, resp.URL)
	require.NotEmpty(t, resp.Warnings)
}

func TestExportUploadFailureIsGeneric(t *testing.T) {
	router, _ := newTestRouterWithStorage(t, &stubStorage{putErr: errors.New("bucket gone")}, "bucket")
	token := loginAs(t, router, "alice", "pw1")

	w := doJSON(t, router, http.MethodPost, "/api/tasks/export", token, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "internal server error", resp.Error)
}

func TestExportNotConfigured(t *testing.T) {
	router, _ := newTestRouter(t)
	token := loginAs(t, router, "alice", "pw1")

	w := doJSON(t, router, http.MethodPost, "/api/tasks/export", token, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

