package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/commenthub/internal/auth"
	"github.com/dmitrymomot/commenthub/internal/comment"
	"github.com/dmitrymomot/commenthub/internal/export"
	"github.com/dmitrymomot/commenthub/internal/filestore"
	"github.com/dmitrymomot/commenthub/internal/httpapi"
	"github.com/dmitrymomot/commenthub/internal/resource"
)

type fixture struct {
	mux     *http.ServeMux
	store   *comment.MemoryStore
	storage *export.MemoryStorage
	files   filestore.FileStore
	tokens  *auth.TokenService
	user    *comment.User
	post    *comment.Post
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, resource.Key, any) error { return nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := comment.NewMemoryStore()
	user := store.AddUser("alice")
	post := store.AddPost("hello")

	storage := export.NewMemoryStorage()
	exports, err := export.NewService(storage, store)
	require.NoError(t, err)

	comments, err := comment.NewService(store, nopPublisher{})
	require.NoError(t, err)

	files, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	tokens, err := auth.NewTokenService([]byte("test-key"))
	require.NoError(t, err)

	gateway := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	handler, err := httpapi.NewHandler(exports, comments, files, gateway,
		auth.NewTokenAuthenticator(tokens))
	require.NoError(t, err)

	return &fixture{
		mux:     handler.Routes(),
		store:   store,
		storage: storage,
		files:   files,
		tokens:  tokens,
		user:    user,
		post:    post,
	}
}

func (f *fixture) tokenFor(t *testing.T, userID int64) string {
	t.Helper()

	token, err := f.tokens.Generate(auth.Claims{UserID: userID})
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != 0 {
		r.Header.Set("Authorization", "Bearer "+f.tokenFor(t, userID))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestExportEndpoints(t *testing.T) {
	t.Parallel()

	validBody := `{"resource_type":"post","resource_id":1,"format":"json"}`

	t.Run("create requires authentication", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "POST", "/exports", validBody, 0)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("create rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "POST", "/exports", "{oops", f.user.ID)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create reports field errors", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "POST", "/exports", `{"resource_type":"post","resource_id":1,"format":"csv"}`, f.user.ID)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error map[string][]string `json:"error"`
		}
		decodeBody(t, w, &resp)
		assert.Contains(t, resp.Error, "format")
	})

	t.Run("create and poll", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "POST", "/exports", validBody, f.user.ID)
		require.Equal(t, http.StatusCreated, w.Code)

		var created struct {
			ID           uuid.UUID `json:"id"`
			ResourceType string    `json:"resource_type"`
			ResourceID   int64     `json:"resource_id"`
			Status       string    `json:"status"`
		}
		decodeBody(t, w, &created)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "post", created.ResourceType)
		assert.Equal(t, int64(1), created.ResourceID)
		assert.Equal(t, "new", created.Status)

		w = f.do(t, "GET", "/exports/"+created.ID.String(), "", f.user.ID)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("foreign jobs are invisible", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		stranger := f.store.AddUser("mallory")

		w := f.do(t, "POST", "/exports", validBody, f.user.ID)
		require.Equal(t, http.StatusCreated, w.Code)
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		decodeBody(t, w, &created)

		w = f.do(t, "GET", "/exports/"+created.ID.String(), "", stranger.ID)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown and malformed ids are 404", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "GET", "/exports/"+uuid.NewString(), "", f.user.ID)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = f.do(t, "GET", "/exports/not-a-uuid", "", f.user.ID)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("file is 404 until the job succeeds", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		f := newFixture(t)

		w := f.do(t, "POST", "/exports", validBody, f.user.ID)
		require.Equal(t, http.StatusCreated, w.Code)
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		decodeBody(t, w, &created)

		w = f.do(t, "GET", "/exports/"+created.ID.String()+"/file", "", f.user.ID)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// Finish the job the way the worker would.
		claimed, err := f.storage.ClaimJob(ctx)
		require.NoError(t, err)
		ref, err := f.files.Save(ctx, claimed.FileName(), "application/json",
			strings.NewReader(`[{"id":1}]`))
		require.NoError(t, err)
		require.NoError(t, f.storage.CompleteJob(ctx, claimed.ID, ref))

		w = f.do(t, "GET", "/exports/"+created.ID.String()+"/file", "", f.user.ID)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), claimed.FileName())
		assert.JSONEq(t, `[{"id":1}]`, w.Body.String())
	})
}

func TestCommentEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("create comment", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "POST", "/comments",
			`{"text":"hi","resource_type":"post","resource_id":1}`, f.user.ID)
		require.Equal(t, http.StatusCreated, w.Code)

		var created comment.Comment
		decodeBody(t, w, &created)
		assert.NotZero(t, created.ID)
		assert.Equal(t, f.user.ID, created.UserID)
	})

	t.Run("update own leaf comment", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		seedComment(t, f, f.user.ID, nil)

		w := f.do(t, "PATCH", "/comments/1", `{"text":"edited"}`, f.user.ID)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated comment.Comment
		decodeBody(t, w, &updated)
		assert.Equal(t, "edited", updated.Text)
	})

	t.Run("foreign comments are invisible", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		stranger := f.store.AddUser("mallory")
		seedComment(t, f, f.user.ID, nil)

		w := f.do(t, "PATCH", "/comments/1", `{"text":"hijack"}`, stranger.ID)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("comment with replies cannot be deleted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		root := seedComment(t, f, f.user.ID, nil)
		seedComment(t, f, f.user.ID, &root.ID)

		w := f.do(t, "DELETE", "/comments/1", "", f.user.ID)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("delete leaf comment", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		seedComment(t, f, f.user.ID, nil)

		w := f.do(t, "DELETE", "/comments/1", "", f.user.ID)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("update post", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		w := f.do(t, "PATCH", "/posts/1", `{"text":"rewritten"}`, f.user.ID)
		require.Equal(t, http.StatusOK, w.Code)

		var updated comment.Post
		decodeBody(t, w, &updated)
		assert.Equal(t, "rewritten", updated.Text)
	})
}

func seedComment(t *testing.T, f *fixture, userID int64, parent *int64) *comment.Comment {
	t.Helper()

	c := &comment.Comment{
		UserID:   userID,
		Text:     "seed",
		ParentID: parent,
		Resource: resource.NewKey(resource.KindPost, f.post.ID),
	}
	require.NoError(t, f.store.CreateComment(context.Background(), c))
	return c
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	newHealthHandler := func(t *testing.T, checks ...httpapi.HandlerOption) *http.ServeMux {
		t.Helper()

		store := comment.NewMemoryStore()
		exports, err := export.NewService(export.NewMemoryStorage(), store)
		require.NoError(t, err)
		comments, err := comment.NewService(store, nopPublisher{})
		require.NoError(t, err)
		files, err := filestore.NewLocalStore(t.TempDir())
		require.NoError(t, err)
		tokens, err := auth.NewTokenService([]byte("k"))
		require.NoError(t, err)

		handler, err := httpapi.NewHandler(exports, comments, files,
			http.NotFoundHandler(), auth.NewTokenAuthenticator(tokens), checks...)
		require.NoError(t, err)
		return handler.Routes()
	}

	t.Run("all probes healthy", func(t *testing.T) {
		t.Parallel()

		mux := newHealthHandler(t, httpapi.WithHealthCheck("storage",
			func(context.Context) error { return nil }))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		decodeBody(t, w, &resp)
		assert.Equal(t, "ok", resp["storage"])
	})

	t.Run("failing probe turns the endpoint unhealthy", func(t *testing.T) {
		t.Parallel()

		mux := newHealthHandler(t,
			httpapi.WithHealthCheck("storage", func(context.Context) error { return nil }),
			httpapi.WithHealthCheck("relay", func(context.Context) error {
				return errors.New("connection refused")
			}))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp map[string]string
		decodeBody(t, w, &resp)
		assert.Equal(t, "ok", resp["storage"])
		assert.Contains(t, resp["relay"], "connection refused")
	})
}
