package ports

import (
	"context"

	"github.com/willvault/auth/core"
)

// UserStore is the external account store. The auth core never embeds
// storage logic; it only resolves and creates identities through this
// interface.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*core.User, error)
	FindByEmail(ctx context.Context, email string) (*core.User, error)
	FindByWalletAddress(ctx context.Context, address string) (*core.User, error)
	Create(ctx context.Context, user *core.User) error
	UpdateLastLogin(ctx context.Context, id string) error
}
