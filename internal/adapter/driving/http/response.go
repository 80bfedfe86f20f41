package httphandler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fduhole/dxkit/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PushTokenRequest is the JSON body for the push token endpoint. Token is
// the raw device token, hex encoded.
type PushTokenRequest struct {
	Token string `json:"token"`
}

func (p PushTokenRequest) bytes() ([]byte, error) {
	if p.Token == "" {
		return nil, errors.New("empty token")
	}
	return hex.DecodeString(p.Token)
}

// SessionResponse is the JSON representation of the login state.
type SessionResponse struct {
	LoggedIn  bool   `json:"logged_in"`
	IsAdmin   bool   `json:"is_admin"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// UserResponse is the JSON representation of the signed-in user.
type UserResponse struct {
	ID         int    `json:"id"`
	Nickname   string `json:"nickname"`
	Email      string `json:"email"`
	JoinedTime string `json:"joined_time"`
	LastLogin  string `json:"last_login"`
	IsAdmin    bool   `json:"is_admin"`
}

// TagResponse is the JSON representation of a forum tag.
type TagResponse struct {
	ID          int    `json:"tag_id"`
	Name        string `json:"name"`
	Temperature int    `json:"temperature"`
}

// DivisionResponse is the JSON representation of a forum division.
type DivisionResponse struct {
	ID          int    `json:"division_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FavoritesResponse lists the favorite hole ids.
type FavoritesResponse struct {
	HoleIDs []int `json:"hole_ids"`
}

// CourseGroupResponse is the JSON representation of a course group.
type CourseGroupResponse struct {
	ID         int              `json:"id"`
	Name       string           `json:"name"`
	Code       string           `json:"code"`
	Department string           `json:"department"`
	CampusName string           `json:"campus_name"`
	Courses    []CourseResponse `json:"courses"`
}

// CourseResponse is the JSON representation of a single course offering.
type CourseResponse struct {
	ID       int     `json:"id"`
	CodeID   string  `json:"code_id"`
	Teachers string  `json:"teachers"`
	Credit   float64 `json:"credit"`
	Year     int     `json:"year"`
	Semester int     `json:"semester"`
}

func toSessionResponse(cred *model.Credential, isAdmin bool) SessionResponse {
	if cred == nil {
		return SessionResponse{}
	}

	resp := SessionResponse{LoggedIn: true, IsAdmin: isAdmin}
	if exp, ok := cred.Expiry(); ok {
		resp.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	return resp
}

func toUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Nickname:   u.Nickname,
		Email:      u.Email,
		JoinedTime: formatTime(u.JoinedTime),
		LastLogin:  formatTime(u.LastLogin),
		IsAdmin:    u.IsAdmin,
	}
}

func toTagResponse(t model.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Temperature: t.Temperature}
}

func toDivisionResponse(d model.Division) DivisionResponse {
	return DivisionResponse{ID: d.ID, Name: d.Name, Description: d.Description}
}

// toCourseGroupResponse converts a domain CourseGroup; Courses is never nil.
func toCourseGroupResponse(g model.CourseGroup) CourseGroupResponse {
	courses := make([]CourseResponse, 0, len(g.Courses))
	for _, c := range g.Courses {
		courses = append(courses, CourseResponse{
			ID:       c.ID,
			CodeID:   c.CodeID,
			Teachers: c.Teachers,
			Credit:   c.Credit,
			Year:     c.Year,
			Semester: c.Semester,
		})
	}

	return CourseGroupResponse{
		ID:         g.ID,
		Name:       g.Name,
		Code:       g.Code,
		Department: g.Department,
		CampusName: g.CampusName,
		Courses:    courses,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
