package models

import "time"

// RegisterRequest is the input for user registration
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// LoginRequest is the input for password login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the new session token and the logged in user
type LoginResponse struct {
	SessionToken string   `json:"sessionToken"`
	User         UserInfo `json:"user"`
}

type UserInfoResponse struct {
	User    UserInfo    `json:"user"`
	Session SessionInfo `json:"session"`
}

type StatusResponse struct {
	Server    string    `json:"server"`
	Database  string    `json:"database"`
	Sessions  int       `json:"cachedSessions"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// SetStateRequest is the input for changing an account state
type SetStateRequest struct {
	State string `json:"state"`
}

// UserList is one page of accounts
type UserList struct {
	Users  []UserInfo `json:"users"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
