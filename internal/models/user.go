package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	UserStateActive   = "Active"
	UserStatePending  = "Pending"
	UserStateDisabled = "Disabled"
)

// User is a stored account. PasswordHash never leaves the server.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	State        string `json:"state"`
	PasswordHash string `json:"-"`
}

type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	State    string `json:"state"`
}

// Info strips the credential fields from u.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		State:    u.State,
	}
}
