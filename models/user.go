package models

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleHandler Role = "handler"
)

type User struct {
	ID           int64  `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Principal is the authenticated caller as established by the JWT
// middleware: an opaque user id plus a role, nothing more.
type Principal struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTrainer || r == RoleHandler
}
