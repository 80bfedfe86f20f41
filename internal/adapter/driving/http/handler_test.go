package httphandler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/fduhole/dxkit/internal/adapter/driving/http"
	"github.com/fduhole/dxkit/internal/application"
	"github.com/fduhole/dxkit/internal/domain/model"
	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockBackend struct {
	loginErr     error
	userErr      error
	divisionsErr error
	favorites    []int
	uploads      []string
}

func (m *mockBackend) Login(_ context.Context, email, _ string) (model.Credential, error) {
	if m.loginErr != nil {
		return model.Credential{}, m.loginErr
	}
	return model.Credential{Access: "access-" + email, Refresh: "refresh"}, nil
}

func (m *mockBackend) Register(context.Context, string, string, string, bool) (model.Credential, error) {
	return model.Credential{}, driven.ErrTransport
}

func (m *mockBackend) RefreshToken(_ context.Context, refresh string) (model.Credential, error) {
	return model.Credential{Access: "refreshed", Refresh: refresh}, nil
}

func (m *mockBackend) Logout(context.Context) error { return nil }

func (m *mockBackend) LoadUserInfo(context.Context) (model.User, error) {
	if m.userErr != nil {
		return model.User{}, m.userErr
	}
	return model.User{ID: 7, Nickname: "alice", IsAdmin: true}, nil
}

func (m *mockBackend) UploadNotificationToken(_ context.Context, _, token string) error {
	m.uploads = append(m.uploads, token)
	return nil
}

func (m *mockBackend) DeleteNotificationToken(context.Context, string) error { return nil }

func (m *mockBackend) LoadTags(context.Context) ([]model.Tag, error) {
	return []model.Tag{{ID: 1, Name: "life", Temperature: 12}}, nil
}

func (m *mockBackend) LoadDivisions(context.Context) ([]model.Division, error) {
	if m.divisionsErr != nil {
		return nil, m.divisionsErr
	}
	return []model.Division{{ID: 1, Name: "treehole"}}, nil
}

func (m *mockBackend) LoadFavoriteIDs(context.Context) ([]int, error) {
	return m.favorites, nil
}

func (m *mockBackend) ToggleFavorite(_ context.Context, holeID int, add bool) ([]int, error) {
	if add {
		m.favorites = append(m.favorites, holeID)
		return m.favorites, nil
	}
	kept := []int{}
	for _, id := range m.favorites {
		if id != holeID {
			kept = append(kept, id)
		}
	}
	m.favorites = kept
	return kept, nil
}

func (m *mockBackend) LoadCourseHash(context.Context) (string, error) { return "h1", nil }

func (m *mockBackend) LoadCourseGroups(context.Context) ([]model.CourseGroup, error) {
	return []model.CourseGroup{{
		ID:      1,
		Code:    "COMP0001",
		Courses: []model.Course{{ID: 11, CodeID: "COMP0001.01", Teachers: "Zhang"}},
	}}, nil
}

type mapStore struct {
	secrets map[string][]byte
	prefs   map[string]string
}

type secretStore struct{ *mapStore }

func (s secretStore) Get(_ context.Context, key string) ([]byte, error) { return s.secrets[key], nil }
func (s secretStore) Set(_ context.Context, key string, v []byte) error {
	s.secrets[key] = v
	return nil
}
func (s secretStore) Delete(_ context.Context, key string) error {
	delete(s.secrets, key)
	return nil
}

type prefStore struct{ *mapStore }

func (s prefStore) Get(_ context.Context, key string) (string, error) { return s.prefs[key], nil }
func (s prefStore) Set(_ context.Context, key, v string) error {
	s.prefs[key] = v
	return nil
}
func (s prefStore) Delete(_ context.Context, key string) error {
	delete(s.prefs, key)
	return nil
}

// memoryCache is a ValueCache that never persists.
type memoryCache[T any] struct{}

func (memoryCache[T]) Load() (T, bool, error) {
	var zero T
	return zero, false, nil
}
func (memoryCache[T]) Store(T) error { return nil }
func (memoryCache[T]) Remove() error { return nil }

// --- Test helpers ---

func setupMux(t *testing.T, backend *mockBackend) (http.Handler, *application.Session) {
	t.Helper()

	store := &mapStore{secrets: map[string][]byte{}, prefs: map[string]string{}}
	resources := application.NewResourceCache(backend, backend, backend, application.DiskCaches{
		User:    memoryCache[model.User]{},
		Tags:    memoryCache[[]model.Tag]{},
		Courses: memoryCache[model.CourseCache]{},
	}, nil)
	session, err := application.NewSession(context.Background(), backend, backend,
		secretStore{store}, prefStore{store}, application.NewCredentialHolder(nil),
		resources, "device-1", nil)
	require.NoError(t, err)

	h := httphandler.NewHandler(session, resources, slog.Default())
	return httphandler.NewServeMux(h, slog.Default()), session
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestGetSession_LoggedOut(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodGet, "/api/v1/session", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, false, body["logged_in"])
	assert.NotContains(t, body, "expires_at")
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		backend    *mockBackend
		body       string
		wantStatus int
		wantLogged bool
	}{
		{
			name:       "success",
			backend:    &mockBackend{},
			body:       `{"email":"a@fudan.edu.cn","password":"pw"}`,
			wantStatus: http.StatusOK,
			wantLogged: true,
		},
		{
			name:       "malformed body",
			backend:    &mockBackend{},
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing password",
			backend:    &mockBackend{},
			body:       `{"email":"a@fudan.edu.cn"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rejected credentials",
			backend:    &mockBackend{loginErr: fmt.Errorf("POST /api/login: 401: %w", driven.ErrUnauthorized)},
			body:       `{"email":"a@fudan.edu.cn","password":"wrong"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "auth service down",
			backend:    &mockBackend{loginErr: driven.ErrTransport},
			body:       `{"email":"a@fudan.edu.cn","password":"pw"}`,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, session := setupMux(t, tt.backend)

			rec := serve(mux, http.MethodPost, "/api/v1/session/login", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLogged, session.IsLogged())
			if tt.wantStatus != http.StatusOK {
				var body map[string]string
				decodeJSON(t, rec, &body)
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestLogout(t *testing.T) {
	mux, session := setupMux(t, &mockBackend{})
	require.NoError(t, session.Login(context.Background(), "a", "pw"))

	rec := serve(mux, http.MethodPost, "/api/v1/session/logout", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, session.IsLogged())
}

func TestRefresh_RequiresLogin(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodPost, "/api/v1/session/refresh", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh(t *testing.T) {
	mux, session := setupMux(t, &mockBackend{})
	require.NoError(t, session.Login(context.Background(), "a", "pw"))

	rec := serve(mux, http.MethodPost, "/api/v1/session/refresh", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refreshed", session.Credential().Access)
}

func TestLoadForum(t *testing.T) {
	tests := []struct {
		name       string
		backend    *mockBackend
		wantStatus int
	}{
		{name: "success", backend: &mockBackend{}, wantStatus: http.StatusNoContent},
		{name: "partial failure", backend: &mockBackend{divisionsErr: driven.ErrDecode}, wantStatus: http.StatusBadGateway},
		{name: "unauthorized", backend: &mockBackend{userErr: driven.ErrUnauthorized}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := setupMux(t, tt.backend)

			rec := serve(mux, http.MethodPost, "/api/v1/forum/load", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetUser(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodGet, "/api/v1/user", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "alice", body["nickname"])
	assert.Equal(t, true, body["is_admin"])
	assert.Equal(t, "", body["joined_time"])
}

func TestListTagsAndDivisions(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodGet, "/api/v1/tags", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var tags []map[string]any
	decodeJSON(t, rec, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, "life", tags[0]["name"])
	assert.InDelta(t, 12, tags[0]["temperature"], 0)

	rec = serve(mux, http.MethodGet, "/api/v1/divisions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var divisions []map[string]any
	decodeJSON(t, rec, &divisions)
	require.Len(t, divisions, 1)
	assert.Equal(t, "treehole", divisions[0]["name"])
}

func TestFavorites(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodGet, "/api/v1/favorites", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hole_ids":[]}`, rec.Body.String())

	rec = serve(mux, http.MethodPut, "/api/v1/favorites/42", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hole_ids":[42]}`, rec.Body.String())

	rec = serve(mux, http.MethodPut, "/api/v1/favorites/42", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hole_ids":[]}`, rec.Body.String())
}

func TestToggleFavorite_InvalidID(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodPut, "/api/v1/favorites/abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCourses(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodGet, "/api/v1/courses", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var groups []httphandler.CourseGroupResponse
	decodeJSON(t, rec, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, "COMP0001", groups[0].Code)
	require.Len(t, groups[0].Courses, 1)
	assert.Equal(t, "Zhang", groups[0].Courses[0].Teachers)
}

func TestPushToken(t *testing.T) {
	backend := &mockBackend{}
	mux, session := setupMux(t, backend)

	rec := serve(mux, http.MethodPost, "/api/v1/push-token", `{"token":"abcd"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, session.Login(context.Background(), "a", "pw"))

	rec = serve(mux, http.MethodPost, "/api/v1/push-token", `{"token":"zz"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(mux, http.MethodPost, "/api/v1/push-token", `{"token":"abcd"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"abcd"}, backend.uploads)
}

func TestUnknownRoute(t *testing.T) {
	mux, _ := setupMux(t, &mockBackend{})

	rec := serve(mux, http.MethodGet, "/api/v1/prs", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
