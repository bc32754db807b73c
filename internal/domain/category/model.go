package category

import "github.com/hirosato/finance-ledger/internal/domain/ledger"

// View is a category with the attributes derived from its ancestry
type View struct {
	ledger.Category
	FullName string      `json:"fullName"`
	RootID   int64       `json:"rootId"`
	Kind     ledger.Kind `json:"kind"`
	Level    int         `json:"level"`
}

// SaveRequest names a category by id or by (parent, name). A non-zero ID
// that resolves to the caller's own category renames it.
type SaveRequest struct {
	ID       int64  `json:"id,omitempty"`
	ParentID int64  `json:"parentId"`
	Name     string `json:"name"`
}
