package model

import "time"

// User is the signed-in account as returned by the auth service.
type User struct {
	ID         int       `json:"id"`
	Nickname   string    `json:"nickname"`
	Email      string    `json:"email"`
	JoinedTime time.Time `json:"joined_time"`
	LastLogin  time.Time `json:"last_login"`
	IsAdmin    bool      `json:"is_admin"`
}
