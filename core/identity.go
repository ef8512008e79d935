package core

import "time"

// Role is an identity's authorization level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the output of a successful verification event: who the
// subject is and what the verifier established about them
type Identity struct {
	ID            string // User id; empty until resolved against the user store
	Email         string // Empty for wallet-only identities
	WalletAddress string // Empty for email-only identities
	Role          Role
	Verified      bool
	DisplayName   string
}

// User is an account record held by the external user store
type User struct {
	ID            string
	Email         string
	WalletAddress string
	Role          Role
	Verified      bool
	DisplayName   string
	CreatedAt     time.Time
	LastLoginAt   time.Time
}

// Identity projects the user record into verification output
func (u *User) Identity() *Identity {
	return &Identity{
		ID:            u.ID,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
		Role:          u.Role,
		Verified:      u.Verified,
		DisplayName:   u.DisplayName,
	}
}

// Session is an authenticated session as carried by a signed token
type Session struct {
	ID          string // Unique session identifier
	SubjectID   string // User id the session asserts
	Email       string // Normalized email, empty for wallet-only identities
	Role        Role
	Verified    bool
	DisplayName string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Identity projects the session claims into an identity. Claims are a
// cache; callers re-resolve the subject before trusting them.
func (s *Session) Identity() *Identity {
	return &Identity{
		ID:          s.SubjectID,
		Email:       s.Email,
		Role:        s.Role,
		Verified:    s.Verified,
		DisplayName: s.DisplayName,
	}
}
