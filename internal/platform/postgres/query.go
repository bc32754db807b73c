package postgres

import (
	"fmt"
	"strings"

	"github.com/hirosato/finance-ledger/internal/domain/ledger"
)

const transactionColumns = `t.id, t.owner_id, t.opdate, COALESCE(t.account_id, 0), t.debit,
	COALESCE(t.recipient_id, 0), t.credit, COALESCE(t.category_id, 0),
	t.currency, t.party, t.details, t.created_at, t.updated_at`

// query accumulates WHERE conditions with positional arguments
type query struct {
	where []string
	args  []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) add(cond string) {
	q.where = append(q.where, cond)
}

func (q *query) clause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *query) touches(accountIDs []int64) {
	if len(accountIDs) == 0 {
		return
	}
	p := q.arg(accountIDs)
	q.add(fmt.Sprintf("(t.account_id = ANY(%s) OR t.recipient_id = ANY(%s))", p, p))
}

func kindCondition(k ledger.Kind) string {
	switch k {
	case ledger.KindExpense:
		return "t.account_id IS NOT NULL AND t.recipient_id IS NULL"
	case ledger.KindIncome:
		return "t.account_id IS NULL AND t.recipient_id IS NOT NULL"
	case ledger.KindTransfer:
		return "t.account_id IS NOT NULL AND t.recipient_id IS NOT NULL"
	default:
		return ""
	}
}

// likePattern escapes LIKE wildcards in s and wraps it for substring search
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func buildFindTransactions(f ledger.TransactionFilter) (string, []any) {
	q := &query{}
	q.touches(f.AccountIDs)
	if f.From != nil {
		q.add("t.opdate >= " + q.arg(*f.From))
	}
	if f.To != nil {
		q.add("t.opdate < " + q.arg(*f.To))
	}
	if f.After != nil {
		q.add(fmt.Sprintf("(t.opdate, t.id) > (%s, %s)", q.arg(f.After.Opdate), q.arg(f.After.ID)))
	}
	if len(f.CategoryIDs) > 0 {
		q.add(fmt.Sprintf("t.category_id = ANY(%s)", q.arg(f.CategoryIDs)))
	}
	if cond := kindCondition(f.Kind); cond != "" {
		q.add(cond)
	}
	if f.Uncategorized {
		q.add("t.category_id IS NULL")
	}
	if f.Currency != "" {
		q.add("lower(COALESCE(NULLIF(t.currency, ''), a.currency, r.currency)) = lower(" + q.arg(f.Currency) + ")")
	}
	search := strings.TrimSpace(f.Search)
	if search != "" {
		p := q.arg(likePattern(search))
		q.add(fmt.Sprintf("(t.party ILIKE %s OR t.details ILIKE %s OR c.name ILIKE %s)", p, p, p))
	}

	var b strings.Builder
	b.WriteString("SELECT " + transactionColumns + " FROM transactions t")
	if f.Currency != "" {
		b.WriteString(" LEFT JOIN accounts a ON a.id = t.account_id LEFT JOIN accounts r ON r.id = t.recipient_id")
	}
	if search != "" {
		b.WriteString(" LEFT JOIN categories c ON c.id = t.category_id")
	}
	b.WriteString(q.clause())
	b.WriteString(" ORDER BY t.opdate DESC, t.id DESC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + q.arg(f.Limit))
	}
	if f.Offset > 0 {
		b.WriteString(" OFFSET " + q.arg(f.Offset))
	}
	if f.ForUpdate {
		b.WriteString(" FOR UPDATE OF t")
	}
	return b.String(), q.args
}

func buildAggregateBalances(bq ledger.BalanceQuery) (string, []any) {
	q := &query{}
	q.touches(bq.AccountIDs)
	if bq.From != nil {
		q.add("t.opdate >= " + q.arg(*bq.From))
	}
	if bq.To != nil {
		to := q.arg(*bq.To)
		if bq.BeforeID != 0 {
			q.add(fmt.Sprintf("(t.opdate < %s OR (t.opdate = %s AND t.id < %s))", to, to, q.arg(bq.BeforeID)))
		} else {
			q.add("t.opdate < " + to)
		}
	}
	return `SELECT COALESCE(t.account_id, 0), COALESCE(t.recipient_id, 0),
	SUM(t.debit)::BIGINT, SUM(t.credit)::BIGINT, MAX(t.opdate)
	FROM transactions t` + q.clause() + " GROUP BY 1, 2 ORDER BY 1, 2", q.args
}

func buildCategorySums(cq ledger.CategorySumQuery) (string, []any, error) {
	var side, amount string
	switch cq.Kind {
	case ledger.KindExpense:
		side, amount = "t.account_id", "t.debit"
	case ledger.KindIncome:
		side, amount = "t.recipient_id", "t.credit"
	default:
		return "", nil, fmt.Errorf("category sums need an expense or income kind, got %s", cq.Kind)
	}

	q := &query{}
	q.add(kindCondition(cq.Kind))
	if len(cq.AccountIDs) > 0 {
		q.add(fmt.Sprintf("%s = ANY(%s)", side, q.arg(cq.AccountIDs)))
	}
	if cq.From != nil {
		q.add("t.opdate >= " + q.arg(*cq.From))
	}
	if cq.To != nil {
		q.add("t.opdate < " + q.arg(*cq.To))
	}
	if cq.ExcludeCategoryID != 0 {
		q.add(fmt.Sprintf("(t.category_id IS NULL OR t.category_id <> %s)", q.arg(cq.ExcludeCategoryID)))
	}
	return fmt.Sprintf(`SELECT COALESCE(t.category_id, 0), %s, SUM(%s)::BIGINT
	FROM transactions t%s GROUP BY 1, 2 ORDER BY 1, 2`, side, amount, q.clause()), q.args, nil
}
