package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"socialhub/internal/auth"
	"socialhub/internal/database"
	"socialhub/internal/httpapi"
	"socialhub/internal/migration"
	_ "socialhub/internal/migrations"
	"socialhub/internal/social"
)

type testAPI struct {
	handler  http.Handler
	verifier *auth.Verifier
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite://:memory:", database.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	_, err = migration.NewMigrator(db, nil).Up(ctx)
	require.NoError(t, err)

	verifier := auth.NewVerifier("test-secret", "", "")
	h := httpapi.NewHandler(social.NewService(db, nil), func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}, nil)
	return &testAPI{handler: h.Routes(verifier), verifier: verifier}
}

func (a *testAPI) token(t *testing.T, name string) string {
	t.Helper()
	token, err := a.verifier.Sign(auth.Identity{
		Subject:   "user_" + name,
		Email:     name + "@example.com",
		Username:  name,
		FirstName: name,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (a *testAPI) signup(t *testing.T, name string) (string, string) {
	t.Helper()
	token := a.token(t, name)
	status, body := a.do(t, http.MethodPost, "/api/users/sync", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	user := body["user"].(map[string]any)
	return token, user["id"].(string)
}

func (a *testAPI) do(t *testing.T, method, path, token string, in any) (int, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if in != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(in))
	}
	r := httptest.NewRequest(method, path, &body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestPostLifecycle(t *testing.T) {
	api := setupAPI(t)
	alice, _ := api.signup(t, "alice")
	bob, _ := api.signup(t, "bob")

	status, body := api.do(t, http.MethodPost, "/api/posts", alice, map[string]string{"content": "hello world"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	postID := body["post"].(map[string]any)["id"].(string)

	status, body = api.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, status)
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, postID, posts[0].(map[string]any)["id"])

	status, body = api.do(t, http.MethodPost, "/api/posts/"+postID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["liked"])

	status, body = api.do(t, http.MethodPost, "/api/posts/"+postID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["liked"])

	status, body = api.do(t, http.MethodPost, "/api/posts/"+postID+"/comments", bob, map[string]string{"content": "nice"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "nice", body["comment"].(map[string]any)["content"])

	status, body = api.do(t, http.MethodDelete, "/api/posts/"+postID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["success"])

	status, _ = api.do(t, http.MethodDelete, "/api/posts/"+postID, alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["posts"])
}

func TestErrorStatuses(t *testing.T) {
	api := setupAPI(t)
	alice, aliceID := api.signup(t, "alice")
	stranger := api.token(t, "stranger")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"anonymous create", http.MethodPost, "/api/posts", "", map[string]string{"content": "x"}, http.StatusUnauthorized},
		{"invalid token is anonymous", http.MethodPost, "/api/posts", "garbage", map[string]string{"content": "x"}, http.StatusUnauthorized},
		{"unsynced user", http.MethodPost, "/api/posts", stranger, map[string]string{"content": "x"}, http.StatusNotFound},
		{"empty post", http.MethodPost, "/api/posts", alice, map[string]string{"content": " "}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/posts", alice, map[string]string{"text": "x"}, http.StatusBadRequest},
		{"missing body", http.MethodPost, "/api/posts", alice, nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/posts?limit=abc", "", nil, http.StatusBadRequest},
		{"like missing post", http.MethodPost, "/api/posts/nope/like", alice, nil, http.StatusNotFound},
		{"self follow", http.MethodPost, "/api/users/" + aliceID + "/follow", alice, nil, http.StatusBadRequest},
		{"missing profile", http.MethodGet, "/api/profiles/nobody", "", nil, http.StatusNotFound},
		{"bad website", http.MethodPatch, "/api/profile", alice, map[string]string{"website": "ftp://x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestFollowAndNotifications(t *testing.T) {
	api := setupAPI(t)
	alice, aliceID := api.signup(t, "alice")
	bob, _ := api.signup(t, "bob")

	status, body := api.do(t, http.MethodGet, "/api/users/suggestions", bob, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["users"], 1)

	status, body = api.do(t, http.MethodPost, "/api/users/"+aliceID+"/follow", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["following"])

	status, body = api.do(t, http.MethodGet, "/api/users/"+aliceID+"/follow", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["following"])

	status, body = api.do(t, http.MethodGet, "/api/users/suggestions", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["users"])

	status, body = api.do(t, http.MethodGet, "/api/notifications", alice, nil)
	require.Equal(t, http.StatusOK, status)
	list := body["notifications"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, float64(1), body["unread"])
	n := list[0].(map[string]any)
	assert.Equal(t, "FOLLOW", n["type"])
	assert.Equal(t, "bob", n["creator"].(map[string]any)["username"])

	status, _ = api.do(t, http.MethodPost, "/api/notifications/read", alice, map[string][]string{"ids": {n["id"].(string)}})
	require.Equal(t, http.StatusOK, status)

	_, body = api.do(t, http.MethodGet, "/api/notifications", alice, nil)
	assert.Equal(t, float64(0), body["unread"])

	status, body = api.do(t, http.MethodGet, "/api/notifications", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["notifications"])
}

func TestProfileEndpoints(t *testing.T) {
	api := setupAPI(t)
	alice, _ := api.signup(t, "alice")
	bob, _ := api.signup(t, "bob")

	_, body := api.do(t, http.MethodPost, "/api/posts", bob, map[string]string{"content": "bob's post"})
	postID := body["post"].(map[string]any)["id"].(string)
	_, _ = api.do(t, http.MethodPost, "/api/posts/"+postID+"/like", alice, nil)

	status, body := api.do(t, http.MethodPatch, "/api/profile", alice, map[string]string{"bio": "curious", "website": "https://alice.example.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "curious", body["user"].(map[string]any)["bio"])

	status, body = api.do(t, http.MethodGet, "/api/profiles/alice", "", nil)
	require.Equal(t, http.StatusOK, status)
	profile := body["profile"].(map[string]any)
	assert.Equal(t, "https://alice.example.com", profile["website"])
	assert.Equal(t, float64(0), profile["_count"].(map[string]any)["posts"])

	status, body = api.do(t, http.MethodGet, "/api/profiles/alice/likes", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["posts"], 1)

	status, body = api.do(t, http.MethodGet, "/api/profiles/bob/posts", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["posts"], 1)
}

func TestHealth(t *testing.T) {
	api := setupAPI(t)
	status, body := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	h := httpapi.NewHandler(nil, func(context.Context) error { return errors.New("down") }, nil)
	w := httptest.NewRecorder()
	h.Routes(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDatabaseFailureReturnsGenericPayload(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(errors.New("connection reset by peer"))

	core, logs := observer.New(zapcore.InfoLevel)
	h := httpapi.NewHandler(social.NewService(db, nil), nil, zap.New(core))

	w := httptest.NewRecorder()
	h.Routes(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not able to get posts"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())

	failures := logs.FilterMessage("request failed").All()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].ContextMap()["error"], "connection reset by peer")

	access := logs.FilterMessage("request").All()
	require.Len(t, access, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), access[0].ContextMap()["status"])
}

type panickingService struct {
	httpapi.Service
}

func (panickingService) ListPosts(context.Context, social.Page) ([]social.PostView, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	h := httpapi.NewHandler(panickingService{}, nil, nil)
	w := httptest.NewRecorder()
	h.Routes(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal error"}`, w.Body.String())
}
