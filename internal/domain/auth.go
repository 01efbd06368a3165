package domain

// Caller is the authenticated identity resolved from a verified token.
type Caller struct {
	Email string
	Role  Role
}

// CallerOf returns the caller view of a user.
func CallerOf(user *User) Caller {
	return Caller{Email: user.Email, Role: user.Role}
}
