package auth

import "github.com/ecologiciel/gemini-rag-master/internal/accounts"

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID string
	Email  string
	Role   accounts.Role
}

// IsAdmin reports whether the identity may change configuration.
func (i Identity) IsAdmin() bool { return i.Role == accounts.RoleAdmin }
