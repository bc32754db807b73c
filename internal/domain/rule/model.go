package rule

import "github.com/hirosato/finance-ledger/internal/domain/ledger"

// Request carries the editable fields of a rule
type Request struct {
	ConditionType  ledger.ConditionType `json:"conditionType"`
	ConditionValue string               `json:"conditionValue"`
	CategoryID     int64                `json:"categoryId"`
}

// View is a rule with the full name of its category
type View struct {
	ledger.Rule
	CategoryName string `json:"categoryName"`
}
