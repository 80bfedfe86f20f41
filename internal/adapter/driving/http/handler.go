package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fduhole/dxkit/internal/application"
	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that exposes the session and resource
// cache as a local REST API.
type Handler struct {
	session   *application.Session
	resources *application.ResourceCache
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session *application.Session,
	resources *application.ResourceCache,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:   session,
		resources: resources,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("POST /api/v1/session/login", h.Login)
	mux.HandleFunc("POST /api/v1/session/logout", h.Logout)
	mux.HandleFunc("POST /api/v1/session/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/forum/load", h.LoadForum)
	mux.HandleFunc("POST /api/v1/curriculum/load", h.LoadCurriculum)
	mux.HandleFunc("GET /api/v1/user", h.GetUser)
	mux.HandleFunc("GET /api/v1/tags", h.ListTags)
	mux.HandleFunc("GET /api/v1/divisions", h.ListDivisions)
	mux.HandleFunc("GET /api/v1/favorites", h.ListFavorites)
	mux.HandleFunc("PUT /api/v1/favorites/{id}", h.ToggleFavorite)
	mux.HandleFunc("GET /api/v1/courses", h.ListCourses)
	mux.HandleFunc("POST /api/v1/push-token", h.PushToken)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetSession reports the login state.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Credential(), h.resources.IsAdmin()))
}

// Login authenticates with email and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if err := h.session.Login(r.Context(), req.Email, req.Password); err != nil {
		h.writeDomainError(w, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Credential(), h.resources.IsAdmin()))
}

// Logout signs out. It always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Refresh exchanges the refresh token for a new credential.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RefreshToken(r.Context()); err != nil {
		h.writeDomainError(w, "token refresh failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Credential(), h.resources.IsAdmin()))
}

// LoadForum loads every forum resource that is not cached yet.
func (h *Handler) LoadForum(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadForum(r.Context()); err != nil {
		h.writeDomainError(w, "forum load failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadCurriculum validates the course catalog and loads the user.
func (h *Handler) LoadCurriculum(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadCurriculum(r.Context()); err != nil {
		h.writeDomainError(w, "curriculum load failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUser returns the signed-in user, loading it on first use.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadUser(r.Context()); err != nil {
		h.writeDomainError(w, "user load failed", err)
		return
	}

	user, _ := h.resources.User()
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ListTags returns the forum tags, loading them on first use.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadTags(r.Context()); err != nil {
		h.writeDomainError(w, "tags load failed", err)
		return
	}

	tags := h.resources.Tags()
	resp := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		resp = append(resp, toTagResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListDivisions returns the forum divisions, loading them on first use.
func (h *Handler) ListDivisions(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadDivisions(r.Context()); err != nil {
		h.writeDomainError(w, "divisions load failed", err)
		return
	}

	divisions := h.resources.Divisions()
	resp := make([]DivisionResponse, 0, len(divisions))
	for _, d := range divisions {
		resp = append(resp, toDivisionResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListFavorites returns the favorite hole ids, loading them on first use.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadFavoriteIDs(r.Context()); err != nil {
		h.writeDomainError(w, "favorites load failed", err)
		return
	}

	writeJSON(w, http.StatusOK, FavoritesResponse{HoleIDs: nonNil(h.resources.FavoriteIDs())})
}

// ToggleFavorite adds the hole to the favorites, or removes it if present.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	holeID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || holeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid hole id")
		return
	}

	// The toggle direction depends on the cached list.
	if err := h.resources.LoadFavoriteIDs(r.Context()); err != nil {
		h.writeDomainError(w, "favorites load failed", err)
		return
	}
	if err := h.resources.ToggleFavorite(r.Context(), holeID); err != nil {
		h.writeDomainError(w, "favorite toggle failed", err)
		return
	}

	writeJSON(w, http.StatusOK, FavoritesResponse{HoleIDs: nonNil(h.resources.FavoriteIDs())})
}

// ListCourses returns the course groups, validating the cache by hash first.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.LoadCourses(r.Context()); err != nil {
		h.writeDomainError(w, "courses load failed", err)
		return
	}

	groups := h.resources.Courses()
	resp := make([]CourseGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toCourseGroupResponse(g))
	}

	writeJSON(w, http.StatusOK, resp)
}

// PushToken registers the device's push notification token.
func (h *Handler) PushToken(w http.ResponseWriter, r *http.Request) {
	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	data, err := req.bytes()
	if err != nil {
		writeError(w, http.StatusBadRequest, "token must be non-empty hex")
		return
	}
	if !h.session.IsLogged() {
		writeError(w, http.StatusUnauthorized, application.ErrNotLoggedIn.Error())
		return
	}

	if err := h.session.ReceiveNotificationToken(r.Context(), data); err != nil {
		h.writeDomainError(w, "push token upload failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError maps application and port errors to HTTP status codes.
// Remote failures are reported as 502 so callers can tell them from local bugs.
func (h *Handler) writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, driven.ErrUnauthorized), errors.Is(err, application.ErrNotLoggedIn):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, driven.ErrTransport), errors.Is(err, driven.ErrDecode):
		h.logger.Warn(msg, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
