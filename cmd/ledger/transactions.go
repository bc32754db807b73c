package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"github.com/hirosato/finance-ledger/internal/api/response"
	"github.com/hirosato/finance-ledger/internal/domain/transaction"
)

type transactionsCmd struct {
	*env
	id            int64
	accounts      string
	currency      string
	search        string
	category      int64
	uncategorized string
	from, to      string
	offset, limit int
}

func (*transactionsCmd) Name() string { return "transactions" }
func (*transactionsCmd) Synopsis() string {
	return "list transactions with running balances, or show one"
}
func (*transactionsCmd) Usage() string {
	return `ledger transactions [-id <id>] [-accounts <id,...>] [-currency <code>] [-search <text>]
    [-category <id> | -uncategorized expense|income] [-from <date>] [-to <date>]
    [-offset <n>] [-limit <n>]

  Running balances are only reported when neither -search nor a category
  filter is given.
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Show a single transaction.")
	f.StringVar(&c.accounts, "accounts", "", "Comma separated account ids.")
	f.StringVar(&c.currency, "currency", "", "Only transactions in this currency.")
	f.StringVar(&c.search, "search", "", "Substring of party, details or category name.")
	f.Int64Var(&c.category, "category", 0, "Category id, descendants included.")
	f.StringVar(&c.uncategorized, "uncategorized", "", "Uncategorized expenses or incomes.")
	f.StringVar(&c.from, "from", "", "Inclusive start date.")
	f.StringVar(&c.to, "to", "", "Exclusive end date.")
	f.IntVar(&c.offset, "offset", 0, "Rows to skip.")
	f.IntVar(&c.limit, "limit", 50, "Maximum rows.")
}

func (c *transactionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		if c.id != 0 {
			return a.transactions.GetTransaction(ctx, a.user, c.id)
		}
		ids, err := parseIDs(c.accounts)
		if err != nil {
			return nil, err
		}
		kind, err := parseKind(c.uncategorized)
		if err != nil {
			return nil, err
		}
		from, err := optionalTime(c.from)
		if err != nil {
			return nil, err
		}
		to, err := optionalTime(c.to)
		if err != nil {
			return nil, err
		}
		lines, err := a.transactions.ListTransactions(ctx, a.user, &transaction.ListRequest{
			AccountIDs:    ids,
			Currency:      c.currency,
			Search:        c.search,
			CategoryID:    c.category,
			Uncategorized: kind,
			From:          from,
			To:            to,
			Offset:        c.offset,
			Limit:         c.limit,
		})
		if err != nil {
			return nil, err
		}
		return page{items: lines, window: response.Pagination{Offset: c.offset, Limit: c.limit, Count: len(lines)}}, nil
	})
}

type txSaveCmd struct {
	*env
	id                 int64
	date               string
	account, recipient int64
	debit, credit      string
	category           int64
	currency           string
	party, details     string
}

func (*txSaveCmd) Name() string     { return "tx-save" }
func (*txSaveCmd) Synopsis() string { return "create a transaction, or update one with -id" }
func (*txSaveCmd) Usage() string {
	return `ledger tx-save [-id <id>] -date <date> [-account <id> -debit <amount>]
    [-recipient <id> -credit <amount>] [-category <id>] [-currency <code>]
    [-party <text>] [-details <text>]

  -account is the paying side, -recipient the receiving side. Give one side
  for an expense or income, both for a transfer. Later balance corrections
  are adjusted so checkpointed balances stay fixed.
`
}

func (c *txSaveCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction to update.")
	f.StringVar(&c.date, "date", "", "Operation date.")
	f.Int64Var(&c.account, "account", 0, "Debited account.")
	f.StringVar(&c.debit, "debit", "", "Amount leaving the debited account.")
	f.Int64Var(&c.recipient, "recipient", 0, "Credited account.")
	f.StringVar(&c.credit, "credit", "", "Amount entering the credited account.")
	f.Int64Var(&c.category, "category", 0, "Category id.")
	f.StringVar(&c.currency, "currency", "", "Currency, defaults to the account's.")
	f.StringVar(&c.party, "party", "", "Counterparty.")
	f.StringVar(&c.details, "details", "", "Free text.")
}

func (c *txSaveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		opdate, err := parseTime(c.date)
		if err != nil {
			return nil, err
		}
		debit, err := parseAmount("debit", c.debit)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount("credit", c.credit)
		if err != nil {
			return nil, err
		}
		req := &transaction.Request{
			Opdate:      opdate,
			AccountID:   c.account,
			Debit:       debit,
			RecipientID: c.recipient,
			Credit:      credit,
			CategoryID:  c.category,
			Currency:    c.currency,
			Party:       c.party,
			Details:     c.details,
		}
		if c.id != 0 {
			return a.transactions.UpdateTransaction(ctx, a.user, c.id, req)
		}
		return a.transactions.CreateTransaction(ctx, a.user, req)
	})
}

type txRmCmd struct {
	*env
	id int64
}

func (*txRmCmd) Name() string     { return "tx-rm" }
func (*txRmCmd) Synopsis() string { return "delete a transaction" }
func (*txRmCmd) Usage() string {
	return `ledger tx-rm -id <id>
`
}

func (c *txRmCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id.")
}

func (c *txRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		if err := a.transactions.DeleteTransaction(ctx, a.user, c.id); err != nil {
			return nil, err
		}
		return map[string]int64{"deleted": c.id}, nil
	})
}

type checkpointCmd struct {
	*env
	account int64
	date    string
	balance string
}

func (*checkpointCmd) Name() string     { return "checkpoint" }
func (*checkpointCmd) Synopsis() string { return "fix an account's balance at a date" }
func (*checkpointCmd) Usage() string {
	return `ledger checkpoint -account <id> -date <date> -balance <amount>

  Books a correction so the balance at the date equals the given amount.
`
}

func (c *checkpointCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "account", 0, "Account id.")
	f.StringVar(&c.date, "date", "", "Checkpoint date.")
	f.StringVar(&c.balance, "balance", "", "Target balance in major units.")
}

func (c *checkpointCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, f, func(ctx context.Context, a *app, _ *slog.Logger) (interface{}, error) {
		at, err := parseTime(c.date)
		if err != nil {
			return nil, err
		}
		target, err := parseAmount("balance", c.balance)
		if err != nil {
			return nil, err
		}
		return a.transactions.SetBalance(ctx, a.user, c.account, at, target)
	})
}
