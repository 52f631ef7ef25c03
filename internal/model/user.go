package model

// User is a portal account. Password holds a bcrypt hash and is never
// serialized.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}
