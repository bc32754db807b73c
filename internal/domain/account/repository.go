package account

import (
	"context"
)

// Groups defines the interface for account group lookups
type Groups interface {
	// GroupOwner returns the user owning groupID
	GroupOwner(ctx context.Context, groupID int64) (int64, error)
}
